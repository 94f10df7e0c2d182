package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server.ws_path must start with /, got %q", c.Server.WSPath)
	}

	if c.Connections.SendBufferSize < 1 {
		return errors.New("connections.send_buffer_size must be >= 1")
	}
	if c.Connections.MaxMessageSize < 1 {
		return errors.New("connections.max_message_size must be >= 1")
	}
	if c.Connections.RateLimit < 0 {
		return errors.New("connections.rate_limit must be >= 0")
	}
	if c.Connections.PingTimeout <= c.Connections.PingInterval {
		return fmt.Errorf("connections.ping_timeout (%s) must exceed ping_interval (%s)",
			c.Connections.PingTimeout, c.Connections.PingInterval)
	}

	if c.Matchmaking.MaxWaiting < 0 {
		return errors.New("matchmaking.max_waiting must be >= 0")
	}
	if c.Matchmaking.WaitingTTL < 0 {
		return errors.New("matchmaking.waiting_ttl must be >= 0")
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
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
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
