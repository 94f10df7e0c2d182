package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID      = "pairingd"
	DefaultListenAddr      = ":8080"
	DefaultWSPath          = "/ws"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSendBufferSize  = 64
	DefaultMaxMessageSize  = 4096
	DefaultWriteTimeout    = 5 * time.Second
	DefaultPingInterval    = 25 * time.Second
	DefaultPingTimeout     = 60 * time.Second
	DefaultRateLimit       = 20
	DefaultRateBurst       = 40
	DefaultEventBufferSize = 10000
	DefaultSweepInterval   = 10 * time.Second
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultBatchSize       = 500
	DefaultFlushInterval   = 2 * time.Second
	DefaultBufferSize      = 1000
	DefaultMaxBufferSize   = 100000
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Connections defaults
	if c.Connections.SendBufferSize == 0 {
		c.Connections.SendBufferSize = DefaultSendBufferSize
	}
	if c.Connections.MaxMessageSize == 0 {
		c.Connections.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.Connections.WriteTimeout == 0 {
		c.Connections.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connections.PingInterval == 0 {
		c.Connections.PingInterval = DefaultPingInterval
	}
	if c.Connections.PingTimeout == 0 {
		c.Connections.PingTimeout = DefaultPingTimeout
	}
	if c.Connections.RateLimit == 0 {
		c.Connections.RateLimit = DefaultRateLimit
	}
	if c.Connections.RateBurst == 0 {
		c.Connections.RateBurst = DefaultRateBurst
	}
	if c.Connections.EventBufferSize == 0 {
		c.Connections.EventBufferSize = DefaultEventBufferSize
	}

	// Matchmaking defaults. MaxWaiting and WaitingTTL stay 0 (off) unless set.
	if c.Matchmaking.SweepInterval == 0 {
		c.Matchmaking.SweepInterval = DefaultSweepInterval
	}

	applyDBDefaults(&c.Database.DBConfig)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}
	if c.Writers.MaxBufferSize == 0 {
		c.Writers.MaxBufferSize = DefaultMaxBufferSize
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
