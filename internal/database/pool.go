package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexmeet/nexmeet-chat/internal/config"
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PoolConfig translates cfg into a pgxpool configuration.
func PoolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	return poolCfg, nil
}

// Execer runs a statement. *pgxpool.Pool implements it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the pairing journal table and its index if missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pairing_events (
		event_id    UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		conn_id     TEXT NOT NULL,
		partner_id  TEXT,
		session_id  UUID,
		country     TEXT NOT NULL DEFAULT '',
		state       TEXT NOT NULL DEFAULT '',
		interest    TEXT NOT NULL DEFAULT '',
		was_waiting BOOLEAN NOT NULL DEFAULT FALSE,
		occurred_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pairing_events_occurred_at_idx ON pairing_events (occurred_at)`,
	`CREATE INDEX IF NOT EXISTS pairing_events_session_id_idx ON pairing_events (session_id) WHERE session_id IS NOT NULL`,
}
