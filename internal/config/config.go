package config

import "time"

// WatcherConfig is the root configuration for a watcher instance.
type WatcherConfig struct {
	Instance     InstanceConfig     `yaml:"instance"`
	Node         NodeConfig         `yaml:"node"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Listener     ListenerConfig     `yaml:"listener"`
	Database     *DBConfig          `yaml:"database"` // nil = log-only mode, nothing persisted
	Writer       WriterConfig       `yaml:"writer"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// NodeConfig holds the node endpoint and its JSON-RPC method names.
// The method names default to the standard Ethereum ones.
type NodeConfig struct {
	WSURL              string `yaml:"ws_url"`
	SubscribeMethod    string `yaml:"subscribe_method"`
	UnsubscribeMethod  string `yaml:"unsubscribe_method"`
	LivenessMethod     string `yaml:"liveness_method"`
	NotificationMethod string `yaml:"notification_method"`
}

// SubscriptionConfig selects which contract logs to stream.
type SubscriptionConfig struct {
	Address string   `yaml:"address"`
	Topics  []string `yaml:"topics"`
}

// ListenerConfig holds connection lifecycle settings.
type ListenerConfig struct {
	KeepAliveInterval  time.Duration `yaml:"keepalive_interval"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BufferSize         int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"ssl_mode"`
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds
	MaxConns       int    `yaml:"max_conns"`
	MinConns       int    `yaml:"min_conns"`
}

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}
