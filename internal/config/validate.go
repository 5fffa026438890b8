package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *WatcherConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Node.WSURL == "" {
		return errors.New("node.ws_url is required")
	}
	if !strings.HasPrefix(c.Node.WSURL, "ws://") && !strings.HasPrefix(c.Node.WSURL, "wss://") {
		return fmt.Errorf("node.ws_url must use ws or wss scheme, got %q", c.Node.WSURL)
	}

	if c.Listener.KeepAliveInterval <= 0 {
		return errors.New("listener.keepalive_interval must be positive")
	}
	if c.Listener.ProbeTimeout <= 0 {
		return errors.New("listener.probe_timeout must be positive")
	}
	if c.Listener.ReconnectMaxDelay < c.Listener.ReconnectBaseDelay {
		return errors.New("listener.reconnect_max_delay must be >= reconnect_base_delay")
	}

	if c.Database != nil {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Writer.BatchSize < 1 {
			return errors.New("writer.batch_size must be >= 1")
		}
		if c.Writer.BufferSize < 1 {
			return errors.New("writer.buffer_size must be >= 1")
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	return nil
}
