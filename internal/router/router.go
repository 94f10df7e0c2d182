package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nexmeet/nexmeet-chat/internal/connection"
	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/metrics"
	"github.com/nexmeet/nexmeet-chat/internal/model"
	"github.com/nexmeet/nexmeet-chat/internal/protocol"
)

// Router decodes client frames and dispatches them to the pairing Service.
// All events are handled by one goroutine, in arrival order.
type Router interface {
	// Start begins routing messages from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router and closes the journal.
	Stop(ctx context.Context) error

	// Record appends ev to the journal. No-op when journaling is disabled.
	Record(ev model.PairingEvent)

	// Run executes fn on the routing goroutine, between two transport events,
	// and waits for it to finish.
	Run(ctx context.Context, fn func()) error

	// Journal returns the pairing event buffer, or nil when disabled.
	Journal() *GrowableBuffer[model.PairingEvent]

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg     RouterConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	service Service

	// Input from Connection Manager
	input <-chan connection.RawMessage

	journal *GrowableBuffer[model.PairingEvent]

	// Work submitted through Run
	tasks  chan func()
	exited chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.RWMutex
	received        int64
	routed          int64
	parseErrors     int64
	unknownEvents   int64
	invalidRequests int64
	relayDrops      int64
}

// NewRouter creates a new Message Router. metrics may be nil.
func NewRouter(cfg RouterConfig, input <-chan connection.RawMessage, svc Service, m *metrics.Metrics, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &router{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		service: svc,
		input:   input,
		tasks:   make(chan func()),
		exited:  make(chan struct{}),
	}
	if cfg.JournalEnabled {
		r.journal = NewGrowableBuffer[model.PairingEvent](cfg.JournalBufferSize, cfg.JournalMaxSize)
	}
	return r
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started",
		"journal", r.cfg.JournalEnabled,
		"journal_buffer", r.cfg.JournalBufferSize,
	)

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	if r.journal != nil {
		r.journal.Close()
	}

	return nil
}

// Record appends ev to the journal.
func (r *router) Record(ev model.PairingEvent) {
	if r.journal == nil {
		return
	}
	if !r.journal.Send(ev) && !r.journal.Closed() {
		r.logger.Warn("journal full, event dropped", "kind", ev.Kind, "conn_id", ev.ConnID)
	}
}

// Run hands fn to the routing goroutine. It fails if ctx ends or the router
// stops before fn is picked up; once picked up, fn always completes.
func (r *router) Run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case r.tasks <- task:
	case <-r.exited:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done
	return nil
}

// Journal returns the pairing event buffer.
func (r *router) Journal() *GrowableBuffer[model.PairingEvent] {
	return r.journal
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	stats := RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		UnknownEvents:    r.unknownEvents,
		InvalidRequests:  r.invalidRequests,
		RelayDrops:       r.relayDrops,
	}
	r.mu.RUnlock()

	if r.journal != nil {
		stats.Journal = r.journal.Stats()
	}
	return stats
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()
	defer close(r.exited)

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		case task := <-r.tasks:
			task()
		}
	}
}

// route handles a single transport event.
func (r *router) route(raw connection.RawMessage) {
	defer r.count(&r.received)

	switch raw.Kind {
	case connection.KindConnect:
		r.service.Connect(raw.ConnID)
		r.count(&r.routed)
		return

	case connection.KindDisconnect:
		wasWaiting := r.service.Disconnect(raw.ConnID)
		ev := model.NewPairingEvent(model.PairingDisconnected, raw.ConnID, at(raw))
		ev.WasWaiting = wasWaiting
		r.Record(ev)
		r.count(&r.routed)
		return
	}

	in, err := protocol.Decode(raw.Data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownEvent) {
			r.logger.Debug("skipping unknown event", "conn_id", raw.ConnID, "error", err)
			r.count(&r.unknownEvents)
			r.metrics.IncInboundDropped(dropUnknownEvent)
			return
		}
		r.logger.Warn("failed to decode frame", "conn_id", raw.ConnID, "error", err)
		r.count(&r.parseErrors)
		r.metrics.IncInboundDropped(dropParseError)
		return
	}

	switch ev := in.(type) {
	case protocol.FindPartner:
		r.findPartner(raw, ev.Filters)
	case protocol.SendMessage:
		if err := r.service.Relay(raw.ConnID, ev.PartnerID, ev.Message); err != nil {
			r.logger.Debug("message dropped", "conn_id", raw.ConnID, "partner_id", ev.PartnerID, "error", err)
			r.count(&r.relayDrops)
		}
	}

	r.count(&r.routed)
}

func (r *router) findPartner(raw connection.RawMessage, filters match.Filters) {
	out, err := r.service.FindPartner(raw.ConnID, filters)

	var ev model.PairingEvent
	switch {
	case errors.Is(err, match.ErrInvalidRequest):
		r.logger.Warn("invalid pairing request", "conn_id", raw.ConnID)
		r.count(&r.invalidRequests)
		return
	case errors.Is(err, match.ErrRegistryFull):
		ev = model.NewPairingEvent(model.PairingRejected, raw.ConnID, at(raw))
	case err != nil:
		r.logger.Error("pairing request failed", "conn_id", raw.ConnID, "error", err)
		return
	case out.Paired:
		ev = model.NewPairingEvent(model.PairingPaired, raw.ConnID, at(raw))
		ev.PartnerID = out.Partner
		ev.SessionID = out.Session.ID
	default:
		ev = model.NewPairingEvent(model.PairingWaiting, raw.ConnID, at(raw))
	}

	ev.Country = filters.Country
	ev.State = filters.State
	ev.Interest = filters.Interest
	r.Record(ev)
}

func (r *router) count(c *int64) {
	r.mu.Lock()
	*c++
	r.mu.Unlock()
}

func at(raw connection.RawMessage) time.Time {
	if raw.ReceivedAt.IsZero() {
		return time.Now()
	}
	return raw.ReceivedAt
}
