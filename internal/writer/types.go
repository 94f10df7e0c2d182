package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
	}
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64 `json:"inserts"`
	Conflicts int64 `json:"conflicts"`
	Errors    int64 `json:"errors"`
	Flushes   int64 `json:"flushes"`
}

// BatchSender executes a queued batch. *pgxpool.Pool implements it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// journalRow represents a row of the pairing_events table.
type journalRow struct {
	EventID    string // UUID
	Kind       string
	ConnID     string
	PartnerID  *string // NULL unless paired
	SessionID  *string // UUID, NULL unless paired
	Country    string
	State      string
	Interest   string
	WasWaiting bool
	OccurredAt int64 // Microseconds
}

const insertPairingEvent = `
	INSERT INTO pairing_events (event_id, kind, conn_id, partner_id, session_id, country, state, interest, was_waiting, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (event_id) DO NOTHING
`
