package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nexmeet/nexmeet-chat/internal/model"
	"github.com/nexmeet/nexmeet-chat/internal/router"
)

// JournalWriter consumes pairing events from the router journal and writes
// them to the pairing_events table.
type JournalWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from Message Router
	input *router.GrowableBuffer[model.PairingEvent]

	// Database
	db BatchSender

	// Batching
	batch       []journalRow
	batchMu     sync.Mutex
	flushMu     sync.Mutex // serializes database round trips
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewJournalWriter creates a new JournalWriter.
func NewJournalWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[model.PairingEvent],
	db BatchSender,
	logger *slog.Logger,
) *JournalWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &JournalWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]journalRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *JournalWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer, then writes whatever is still buffered using ctx.
func (w *JournalWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
		return ctx.Err()
	}

	for _, ev := range w.input.DrainTo(0) {
		w.add(ev)
	}
	w.flush(ctx)

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *JournalWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop drains the input buffer into the batch.
func (w *JournalWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		events := w.input.DrainTo(w.cfg.BatchSize)
		if len(events) == 0 {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		for _, ev := range events {
			if w.add(ev) {
				w.flush(w.ctx)
			}
		}

		if w.ctx.Err() != nil {
			return
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *JournalWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// add appends ev to the batch and reports whether the batch is full.
func (w *JournalWriter) add(ev model.PairingEvent) bool {
	row := transform(ev)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts a PairingEvent to a journalRow.
func transform(ev model.PairingEvent) journalRow {
	row := journalRow{
		EventID:    ev.EventID.String(),
		Kind:       string(ev.Kind),
		ConnID:     ev.ConnID,
		Country:    ev.Country,
		State:      ev.State,
		Interest:   ev.Interest,
		WasWaiting: ev.WasWaiting,
		OccurredAt: ev.OccurredAt.UnixMicro(),
	}
	if ev.PartnerID != "" {
		partner := ev.PartnerID
		row.PartnerID = &partner
	}
	if ev.SessionID != uuid.Nil {
		session := ev.SessionID.String()
		row.SessionID = &session
	}
	return row
}

// flush writes the current batch to the database.
func (w *JournalWriter) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]journalRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed pairing events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *JournalWriter) batchInsert(ctx context.Context, rows []journalRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertPairingEvent,
			r.EventID, r.Kind, r.ConnID, r.PartnerID, r.SessionID,
			r.Country, r.State, r.Interest, r.WasWaiting, r.OccurredAt,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
