package config

import "time"

// Config is the root configuration for a pairing server instance.
type Config struct {
	Instance    InstanceConfig    `yaml:"instance"`
	Server      ServerConfig      `yaml:"server"`
	Connections ConnectionsConfig `yaml:"connections"`
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`
	Database    DatabaseConfig    `yaml:"database"`
	Writers     WritersConfig     `yaml:"writers"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

// InstanceConfig identifies this server.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	WSPath          string        `yaml:"ws_path"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // Empty = any origin
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ConnectionsConfig holds per-client websocket settings.
type ConnectionsConfig struct {
	SendBufferSize  int           `yaml:"send_buffer_size"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
	RateLimit       float64       `yaml:"rate_limit"` // Frames per second per connection
	RateBurst       int           `yaml:"rate_burst"`
	EventBufferSize int           `yaml:"event_buffer_size"` // Transport → router queue
}

// MatchmakingConfig holds waiting set and relay settings.
type MatchmakingConfig struct {
	MaxWaiting     int           `yaml:"max_waiting"` // 0 = unbounded
	WaitingTTL     time.Duration `yaml:"waiting_ttl"` // 0 = never evict
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	Seed           uint64        `yaml:"seed"` // 0 = seed from clock
	RequirePairing bool          `yaml:"require_pairing"`
}

// DatabaseConfig holds the optional pairing journal database.
type DatabaseConfig struct {
	Enabled  bool `yaml:"enabled"`
	DBConfig `yaml:",inline"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds journal writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	MaxBufferSize int           `yaml:"max_buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
