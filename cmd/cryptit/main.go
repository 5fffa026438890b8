package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mina-zahir/CryptIT/internal/config"
	"github.com/mina-zahir/CryptIT/internal/database"
	"github.com/mina-zahir/CryptIT/internal/decode"
	"github.com/mina-zahir/CryptIT/internal/listener"
	"github.com/mina-zahir/CryptIT/internal/model"
	"github.com/mina-zahir/CryptIT/internal/version"
	"github.com/mina-zahir/CryptIT/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/cryptit.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting watcher",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"node", cfg.Node.WSURL,
		"address", cfg.Subscription.Address,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Optional persistence
	var events *writer.EventWriter
	if cfg.Database != nil {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err := database.Connect(ctx, *cfg.Database, cfg.Instance.ID)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		events = writer.NewEventWriter(writer.Config{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
			BufferSize:    cfg.Writer.BufferSize,
		}, pool, logger)

		if err := events.Start(ctx); err != nil {
			logger.Error("failed to start event writer", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("no database configured, running log-only")
	}

	l, err := listener.New(listener.Config{
		URL:                cfg.Node.WSURL,
		Address:            cfg.Subscription.Address,
		Topics:             cfg.Subscription.Topics,
		SubscribeMethod:    cfg.Node.SubscribeMethod,
		UnsubscribeMethod:  cfg.Node.UnsubscribeMethod,
		LivenessMethod:     cfg.Node.LivenessMethod,
		NotificationMethod: cfg.Node.NotificationMethod,
		KeepAliveInterval:  cfg.Listener.KeepAliveInterval,
		ProbeTimeout:       cfg.Listener.ProbeTimeout,
		BackoffFloor:       cfg.Listener.ReconnectBaseDelay,
		BackoffCeiling:     cfg.Listener.ReconnectMaxDelay,
		BufferSize:         cfg.Listener.BufferSize,
		Decode:             decode.Log,
		OnEvent: func(ev *model.Event) {
			if ev == nil {
				logger.Warn("received undecodable event payload")
				return
			}
			logger.Info("event",
				"address", ev.Address,
				"signature", ev.Signature(),
				"block", ev.BlockNumber,
				"tx", ev.TxHash,
				"removed", ev.Removed,
			)
			if events != nil {
				events.Enqueue(ev)
			}
		},
	}, logger)
	if err != nil {
		logger.Error("invalid listener config", "error", err)
		os.Exit(1)
	}

	if err := l.Start(ctx); err != nil {
		logger.Error("failed to start listener", "error", err)
		os.Exit(1)
	}

	// Periodic stats logging
	statsTicker := time.NewTicker(time.Minute)
	defer statsTicker.Stop()

	exitCode := 0

loop:
	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			break loop

		case err := <-l.Fatal():
			logger.Error("listener stopped permanently", "error", err)
			exitCode = 1
			break loop

		case <-statsTicker.C:
			st := l.Stats()
			logger.Info("listener stats",
				"connected", st.Connected,
				"generation", st.Generation,
				"reconnects", st.Reconnects,
				"probe_timeouts", st.ProbeTimeouts,
				"delivered", st.EventsDelivered,
				"dropped", st.EventsDropped,
			)
		}
	}

	l.Stop()
	cancel()

	if events != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := events.Stop(stopCtx); err != nil {
			logger.Warn("event writer shutdown", "error", err)
		}
	}

	logger.Info("watcher stopped")
	os.Exit(exitCode)
}
