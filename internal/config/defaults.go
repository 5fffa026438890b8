package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSubscribeMethod    = "eth_subscribe"
	DefaultUnsubscribeMethod  = "eth_unsubscribe"
	DefaultLivenessMethod     = "net_listening"
	DefaultNotificationMethod = "eth_subscription"

	DefaultKeepAliveInterval  = 60 * time.Second
	DefaultProbeTimeout       = 15 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultListenerBufferSize = 1000

	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultDBConnectTimeout = 10 // seconds
	DefaultMaxConns         = 10
	DefaultMinConns         = 2

	DefaultBatchSize     = 500
	DefaultFlushInterval = 1 * time.Second
	DefaultWriterBuffer  = 10000
)

func (c *WatcherConfig) applyDefaults() {
	// Node defaults
	if c.Node.SubscribeMethod == "" {
		c.Node.SubscribeMethod = DefaultSubscribeMethod
	}
	if c.Node.UnsubscribeMethod == "" {
		c.Node.UnsubscribeMethod = DefaultUnsubscribeMethod
	}
	if c.Node.LivenessMethod == "" {
		c.Node.LivenessMethod = DefaultLivenessMethod
	}
	if c.Node.NotificationMethod == "" {
		c.Node.NotificationMethod = DefaultNotificationMethod
	}

	// Listener defaults
	if c.Listener.KeepAliveInterval == 0 {
		c.Listener.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.Listener.ProbeTimeout == 0 {
		c.Listener.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Listener.ReconnectBaseDelay == 0 {
		c.Listener.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Listener.ReconnectMaxDelay == 0 {
		c.Listener.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Listener.BufferSize == 0 {
		c.Listener.BufferSize = DefaultListenerBufferSize
	}

	// Database defaults (only when persistence is configured)
	if c.Database != nil {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.ConnectTimeout == 0 {
			c.Database.ConnectTimeout = DefaultDBConnectTimeout
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Writer.BufferSize == 0 {
		c.Writer.BufferSize = DefaultWriterBuffer
	}
}
