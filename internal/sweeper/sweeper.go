package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/model"
)

// Evictor removes waiting entries older than a cutoff.
type Evictor interface {
	EvictOlderThan(cutoff time.Time) []match.Entry
}

// Notifier tells evicted connections they are no longer waiting.
type Notifier interface {
	Evict(entries []match.Entry)
}

// Recorder accepts pairing journal events. May be nil.
type Recorder interface {
	Record(ev model.PairingEvent)
}

// Executor runs fn on the goroutine that owns pairing state and waits for it.
type Executor interface {
	Run(ctx context.Context, fn func()) error
}

// Config holds sweeper configuration.
type Config struct {
	TTL      time.Duration // Max time in the waiting set (0 = disabled)
	Interval time.Duration // Sweep interval (default: 10s)
}

// DefaultConfig returns sensible defaults. Eviction is off by default.
func DefaultConfig() Config {
	return Config{
		TTL:      0,
		Interval: 10 * time.Second,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Sweeps  int64 `json:"sweeps"`
	Evicted int64 `json:"evicted"`
}

// Sweeper periodically evicts stale waiting entries.
type Sweeper struct {
	cfg      Config
	evictor  Evictor
	notifier Notifier
	recorder Recorder
	executor Executor
	logger   *slog.Logger
	now      func() time.Time

	sweeps  atomic.Int64
	evicted atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Sweeper. recorder may be nil. A nil executor runs each
// pass on the calling goroutine.
func New(cfg Config, evictor Evictor, notifier Notifier, recorder Recorder, executor Executor, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Sweeper{
		cfg:      cfg,
		evictor:  evictor,
		notifier: notifier,
		recorder: recorder,
		executor: executor,
		logger:   logger,
		now:      time.Now,
	}
}

// Enabled reports whether the sweeper evicts anything.
func (s *Sweeper) Enabled() bool {
	return s.cfg.TTL > 0
}

// Start begins the sweep loop. It is a no-op when the TTL is zero.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("waiting set sweeper disabled")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("waiting set sweeper started",
		"ttl", s.cfg.TTL,
		"interval", s.cfg.Interval,
	)

	return nil
}

// Stop gracefully shuts down the sweeper.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("waiting set sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (s *Sweeper) Stats() Stats {
	return Stats{
		Sweeps:  s.sweeps.Load(),
		Evicted: s.evicted.Load(),
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep runs one eviction pass and returns the number of evicted connections.
// Eviction, notification and journaling happen as one step on the executor,
// so no pairing request is handled between them.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if !s.Enabled() {
		return 0
	}

	var entries []match.Entry
	pass := func() {
		now := s.now()
		entries = s.evictor.EvictOlderThan(now.Add(-s.cfg.TTL))
		if len(entries) == 0 {
			return
		}
		s.notifier.Evict(entries)
		s.record(entries, now)
	}

	if s.executor == nil {
		pass()
	} else if err := s.executor.Run(ctx, pass); err != nil {
		s.logger.Debug("sweep skipped", "error", err)
		return 0
	}
	s.sweeps.Add(1)

	if len(entries) == 0 {
		return 0
	}
	s.evicted.Add(int64(len(entries)))

	s.logger.Info("evicted stale waiting connections",
		"count", len(entries),
		"ttl", s.cfg.TTL,
	)

	return len(entries)
}

func (s *Sweeper) record(entries []match.Entry, at time.Time) {
	if s.recorder == nil {
		return
	}
	for _, e := range entries {
		ev := model.NewPairingEvent(model.PairingEvicted, e.ConnID, at)
		ev.Country = e.Filters.Country
		ev.State = e.Filters.State
		ev.Interest = e.Filters.Interest
		s.recorder.Record(ev)
	}
}
