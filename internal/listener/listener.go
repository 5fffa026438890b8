package listener

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mina-zahir/CryptIT/internal/model"
)

// Listener maintains a single log subscription against a node endpoint. It
// reconnects with exponential backoff when the connection drops, detects
// silently dead connections with an application-level liveness probe, and
// re-establishes the subscription after every reconnect. Decoded events are
// forwarded to the configured callback.
//
// A Listener is started once and runs until Stop is called or the endpoint
// rejects the connection outright. Multiple Listeners are independent.
type Listener struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stopped bool
	client  Client // current connection, nil between connections
	subID   string // last established subscription id, for best-effort unsubscribe

	stopCh chan struct{}
	fatal  chan error
	done   chan struct{}

	connected       atomic.Bool
	generation      atomic.Int64
	reconnects      atomic.Int64
	probeTimeouts   atomic.Int64
	eventsDelivered atomic.Int64
	eventsDropped   atomic.Int64
}

// New creates a Listener. Zero-valued optional config fields take defaults.
func New(cfg Config, logger *slog.Logger) (*Listener, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Listener{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		fatal:  make(chan error, 1),
		done:   make(chan struct{}),
	}, nil
}

// Start begins the first connection attempt and returns immediately.
// Cancelling ctx is equivalent to calling Stop.
func (l *Listener) Start(ctx context.Context) error {
	if l.isStopped() {
		return ErrAlreadyClosed
	}
	go l.run(ctx)
	return nil
}

// Stop shuts the listener down: no further reconnects are scheduled and the
// live connection, if any, is closed after a best-effort unsubscribe. Stop
// is idempotent and does not block waiting for final cleanup.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	// The flag flips strictly before the close below, so the session loop
	// observing the closed connection never schedules a reconnect.
	l.stopped = true
	client := l.client
	subID := l.subID
	l.client = nil
	l.subID = ""
	l.mu.Unlock()

	// The unsubscribe goes out before stopCh closes; the session tears the
	// connection down only after observing stopCh, so a Stop-initiated close
	// cannot outrun the send.
	if client != nil && subID != "" {
		// Best effort; never waits for a response.
		if data, err := json.Marshal(newRequest(unsubscribeID, l.cfg.UnsubscribeMethod, []any{subID})); err == nil {
			if err := client.Send(data); err != nil {
				l.logger.Debug("unsubscribe send failed", "error", err)
			}
		}
	}

	close(l.stopCh)

	if client != nil {
		client.Close()
	}
}

// Fatal delivers the terminal error when the listener gives up permanently,
// e.g. the endpoint rejected the WebSocket upgrade. At most one error is sent.
func (l *Listener) Fatal() <-chan error {
	return l.fatal
}

// Done is closed once the connect loop has fully wound down.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// IsConnected reports whether a connection is currently open.
func (l *Listener) IsConnected() bool {
	return l.connected.Load()
}

// Stats returns current counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Connected:       l.connected.Load(),
		Generation:      l.generation.Load(),
		Reconnects:      l.reconnects.Load(),
		ProbeTimeouts:   l.probeTimeouts.Load(),
		EventsDelivered: l.eventsDelivered.Load(),
		EventsDropped:   l.eventsDropped.Load(),
	}
}

func (l *Listener) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// terminate marks the listener permanently stopped and surfaces err to the
// caller. Unlike Stop it is called from inside the run loop, which owns the
// connection teardown itself.
func (l *Listener) terminate(err error) {
	l.mu.Lock()
	already := l.stopped
	l.stopped = true
	l.client = nil
	l.subID = ""
	l.mu.Unlock()

	if !already {
		close(l.stopCh)
	}
	select {
	case l.fatal <- err:
	default:
	}
}

// run is the connect/reconnect loop. It terminates when the listener is
// stopped or the endpoint proves unusable.
func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	delay := l.cfg.BackoffFloor

	for {
		if l.isStopped() {
			return
		}

		client := NewClient(ClientConfig{
			URL:              l.cfg.URL,
			HandshakeTimeout: l.cfg.HandshakeTimeout,
			WriteTimeout:     l.cfg.WriteTimeout,
			BufferSize:       l.cfg.BufferSize,
		}, l.logger)

		if err := client.Connect(ctx); err != nil {
			if errors.Is(err, ErrEndpointRejected) {
				l.logger.Error("endpoint rejected connection, giving up",
					"url", l.cfg.URL,
					"error", err,
				)
				l.terminate(err)
				return
			}
			if l.isStopped() || ctx.Err() != nil {
				return
			}
			l.logger.Warn("connect failed",
				"url", l.cfg.URL,
				"error", err,
				"retry_in", delay,
			)
		} else {
			// A successful open erases prior failure history, even if the
			// handshake never completes: the endpoint is reachable.
			delay = l.cfg.BackoffFloor
			l.generation.Add(1)

			if !l.adopt(client) {
				// Stop raced the dial; adopt already closed the connection.
				return
			}
			l.runSession(ctx, client)
			l.release(client)
		}

		if l.isStopped() {
			return
		}

		l.reconnects.Add(1)
		l.logger.Info("reconnecting", "delay", delay)
		if !l.sleep(ctx, delay) {
			return
		}
		delay = nextBackoff(delay, l.cfg.BackoffCeiling)
	}
}

// adopt publishes the connection as current so Stop can reach it. It reports
// false when the listener was stopped while the dial was in flight.
func (l *Listener) adopt(client Client) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		client.Close()
		return false
	}
	l.client = client
	l.mu.Unlock()

	l.connected.Store(true)
	return true
}

// release clears the current connection if it is still ours. Stop may have
// taken it already.
func (l *Listener) release(client Client) {
	l.connected.Store(false)

	l.mu.Lock()
	if l.client == client {
		l.client = nil
		l.subID = ""
	}
	l.mu.Unlock()
}

// setSubID records the established subscription id for Stop's unsubscribe.
func (l *Listener) setSubID(client Client, id string) {
	l.mu.Lock()
	if l.client == client {
		l.subID = id
	}
	l.mu.Unlock()
}

// sleep waits for the reconnect delay. It reports false when the wait was cut
// short by Stop or context cancellation; the timer is released either way.
func (l *Listener) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-l.stopCh:
		return false
	case <-ctx.Done():
		l.Stop()
		return false
	}
}

// nextBackoff doubles the reconnect delay up to ceiling.
func nextBackoff(d, ceiling time.Duration) time.Duration {
	d *= 2
	if d > ceiling {
		d = ceiling
	}
	return d
}

// session owns all state scoped to exactly one connection: the subscription
// handshake, the liveness probe and its timers. The state lives and dies
// with the session, so nothing can leak across a reconnect and events from a
// superseded connection are unreachable by construction (each session reads
// only its own connection's channels).
type session struct {
	l      *Listener
	client Client

	subID        string // server-assigned, "" until the handshake response arrives
	probePending bool
	deadline     *time.Timer // armed only while a probe is outstanding
}

// runSession drives one connection from subscribe to close. All handshake,
// liveness and dispatch work happens on this single goroutine.
func (l *Listener) runSession(ctx context.Context, client Client) {
	defer client.Close()

	s := &session{l: l, client: client}

	s.deadline = time.NewTimer(l.cfg.ProbeTimeout)
	if !s.deadline.Stop() {
		<-s.deadline.C
	}
	defer s.deadline.Stop()

	keepalive := time.NewTicker(l.cfg.KeepAliveInterval)
	defer keepalive.Stop()

	if err := s.send(newRequest(subscribeID, l.cfg.SubscribeMethod, []any{l.cfg.Stream, logFilter{
		Address: l.cfg.Address,
		Topics:  l.cfg.Topics,
	}})); err != nil {
		l.logger.Warn("subscribe send failed", "error", err)
		return
	}
	l.logger.Info("subscription requested",
		"method", l.cfg.SubscribeMethod,
		"address", l.cfg.Address,
		"topics", len(l.cfg.Topics),
	)

	for {
		select {
		case <-l.stopCh:
			return

		case <-ctx.Done():
			l.Stop()
			return

		case err := <-client.Errors():
			// Most errors are followed by the read loop ending; the
			// reconnect is driven from here either way.
			l.logger.Warn("connection error", "error", err)
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			s.handleMessage(msg)

		case <-keepalive.C:
			if s.probePending {
				// Previous probe still in flight; its deadline decides.
				continue
			}
			if err := s.send(newRequest(probeID, l.cfg.LivenessMethod, []any{})); err != nil {
				l.logger.Warn("liveness probe send failed", "error", err)
				return
			}
			s.probePending = true
			s.deadline.Reset(l.cfg.ProbeTimeout)

		case <-s.deadline.C:
			s.probePending = false
			l.probeTimeouts.Add(1)
			l.logger.Warn("liveness probe timed out, forcing reconnect",
				"timeout", l.cfg.ProbeTimeout,
			)
			return
		}
	}
}

func (s *session) send(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.client.Send(data)
}

// handleMessage classifies one inbound frame and routes it. A frame that
// matches nothing is dropped, never raised as an error.
func (s *session) handleMessage(tm TimestampedMessage) {
	var msg inbound
	if err := json.Unmarshal(tm.Data, &msg); err != nil {
		s.l.logger.Error("dropping unparseable frame", "error", err)
		return
	}

	switch {
	case msg.ID != nil && *msg.ID == subscribeID:
		s.handleSubscribed(msg)

	case msg.ID != nil && *msg.ID == probeID && isTruthy(msg.Result):
		s.handleProbeAck()

	case msg.Method == s.l.cfg.NotificationMethod:
		s.handleNotification(msg.Params, tm.ReceivedAt)

	default:
		s.l.logger.Debug("dropping unrecognized message", "method", msg.Method)
	}
}

// handleSubscribed records the server-assigned subscription id. An error or
// malformed result leaves the id unknown; the liveness path will eventually
// force a fresh handshake via reconnect if the server never delivers one.
func (s *session) handleSubscribed(msg inbound) {
	if msg.Error != nil {
		s.l.logger.Warn("subscribe rejected",
			"code", msg.Error.Code,
			"message", msg.Error.Message,
		)
		return
	}

	var id string
	if err := json.Unmarshal(msg.Result, &id); err != nil || id == "" {
		s.l.logger.Warn("subscribe response carried no subscription id")
		return
	}

	s.subID = id
	s.l.setSubID(s.client, id)
	s.l.logger.Info("subscription established", "subscription", id)
}

// handleProbeAck disarms the pending forced-termination deadline.
func (s *session) handleProbeAck() {
	if !s.probePending {
		return
	}
	s.probePending = false
	if !s.deadline.Stop() {
		select {
		case <-s.deadline.C:
		default:
		}
	}
}

// handleNotification forwards a matching subscription event to the callback,
// stamped with the time the frame came off the wire.
func (s *session) handleNotification(params json.RawMessage, receivedAt time.Time) {
	var note notification
	if err := json.Unmarshal(params, &note); err != nil {
		s.l.logger.Error("dropping malformed notification", "error", err)
		return
	}

	if s.subID == "" || note.Subscription != s.subID {
		s.l.eventsDropped.Add(1)
		s.l.logger.Debug("dropping notification for unknown subscription",
			"subscription", note.Subscription,
		)
		return
	}

	// A decode miss still reaches the callback, as nil.
	var event *model.Event
	if s.l.cfg.Decode != nil {
		event = s.l.cfg.Decode(note.Result)
	}
	if event != nil {
		event.ReceivedAt = receivedAt
	}
	s.l.eventsDelivered.Add(1)
	if s.l.cfg.OnEvent != nil {
		s.l.cfg.OnEvent(event)
	}
}

// isTruthy reports whether a JSON-RPC result is boolean true.
func isTruthy(result json.RawMessage) bool {
	var ok bool
	return json.Unmarshal(result, &ok) == nil && ok
}
