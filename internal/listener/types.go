package listener

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mina-zahir/CryptIT/internal/model"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	// ErrEndpointRejected marks an HTTP-level rejection before the WebSocket
	// upgrade completed. Retrying against such an endpoint is pointless, so
	// the listener treats it as fatal.
	ErrEndpointRejected = errors.New("endpoint rejected websocket upgrade")
)

// Fixed request identifiers. One subscription per connection keeps these
// constants; if multiple subscriptions ever share a connection, allocation
// has to become dynamic.
const (
	subscribeID   int64 = 1
	probeID       int64 = 2
	unsubscribeID int64 = 3
)

// Wire defaults match a standard Ethereum node endpoint. All three are
// configuration, not protocol assumptions.
const (
	DefaultSubscribeMethod    = "eth_subscribe"
	DefaultUnsubscribeMethod  = "eth_unsubscribe"
	DefaultLivenessMethod     = "net_listening"
	DefaultNotificationMethod = "eth_subscription"
	DefaultStream             = "logs"
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// request is an outbound JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

func newRequest(id int64, method string, params any) request {
	return request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
}

// inbound is the superset shape of everything the node sends back: request
// responses carry an id and result, server-pushed notifications carry a
// method and params.
type inbound struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Params json.RawMessage `json:"params"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// notification is the params payload of a subscription push.
type notification struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// logFilter is the second subscribe parameter selecting which logs to stream.
type logFilter struct {
	Address string   `json:"address,omitempty"`
	Topics  []string `json:"topics,omitempty"`
}

// DecodeFunc turns the raw log payload of one notification into a domain
// event. Returning nil means the payload was not recognizable; the listener
// still invokes the callback with nil in that case.
type DecodeFunc func(json.RawMessage) *model.Event

// EventFunc receives each forwarded event. It must tolerate nil.
type EventFunc func(*model.Event)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g. wss://mainnet.example.io/ws)
	HandshakeTimeout time.Duration // Dial handshake timeout
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// Config configures a Listener.
type Config struct {
	URL string // WebSocket endpoint of the node

	// Subscription target: contract address plus topic filter.
	Address string
	Topics  []string

	// JSON-RPC method names; zero values take the Ethereum defaults.
	SubscribeMethod    string
	UnsubscribeMethod  string
	LivenessMethod     string
	NotificationMethod string
	Stream             string

	Decode  DecodeFunc // May be nil: callback then receives nil per event
	OnEvent EventFunc  // May be nil: decoded events are discarded

	KeepAliveInterval time.Duration // Periodic liveness probe interval
	ProbeTimeout      time.Duration // Deadline for a probe response
	BackoffFloor      time.Duration // First reconnect delay
	BackoffCeiling    time.Duration // Reconnect delay cap

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	BufferSize       int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubscribeMethod:    DefaultSubscribeMethod,
		UnsubscribeMethod:  DefaultUnsubscribeMethod,
		LivenessMethod:     DefaultLivenessMethod,
		NotificationMethod: DefaultNotificationMethod,
		Stream:             DefaultStream,
		KeepAliveInterval:  60 * time.Second,
		ProbeTimeout:       15 * time.Second,
		BackoffFloor:       1 * time.Second,
		BackoffCeiling:     30 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         1000,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SubscribeMethod == "" {
		c.SubscribeMethod = def.SubscribeMethod
	}
	if c.UnsubscribeMethod == "" {
		c.UnsubscribeMethod = def.UnsubscribeMethod
	}
	if c.LivenessMethod == "" {
		c.LivenessMethod = def.LivenessMethod
	}
	if c.NotificationMethod == "" {
		c.NotificationMethod = def.NotificationMethod
	}
	if c.Stream == "" {
		c.Stream = def.Stream
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = def.KeepAliveInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.BackoffFloor == 0 {
		c.BackoffFloor = def.BackoffFloor
	}
	if c.BackoffCeiling == 0 {
		c.BackoffCeiling = def.BackoffCeiling
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}

// Validate checks that the configuration is usable. A probe timeout larger
// than the keep-alive interval is unusual but allowed.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.KeepAliveInterval <= 0 {
		return errors.New("keep-alive interval must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if c.BackoffFloor <= 0 {
		return errors.New("backoff floor must be positive")
	}
	if c.BackoffCeiling < c.BackoffFloor {
		return errors.New("backoff ceiling must be >= floor")
	}
	return nil
}

// Stats provides counters about a running listener.
type Stats struct {
	Connected       bool
	Generation      int64 // Successful opens since Start
	Reconnects      int64 // Reconnect cycles scheduled
	ProbeTimeouts   int64 // Connections force-closed by the liveness monitor
	EventsDelivered int64 // Callback invocations
	EventsDropped   int64 // Notifications dropped (unknown or mismatched id)
}
