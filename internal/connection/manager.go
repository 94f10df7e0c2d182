package connection

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nexmeet/nexmeet-chat/internal/metrics"
)

// Manager accepts websocket connections and tracks the live ones.
type Manager interface {
	// ServeHTTP upgrades the request and serves the connection until it closes.
	http.Handler

	// Messages returns channel of transport events for Message Router.
	Messages() <-chan RawMessage

	// Deliver queues a text frame for connID. Returns false if connID is not
	// connected or its send queue is full.
	Deliver(connID string, data []byte) bool

	// Stop closes every connection and waits for them to finish.
	Stop(ctx context.Context) error

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// manager implements the Manager interface.
type manager struct {
	cfg      ManagerConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	// Output channel to Message Router
	router chan RawMessage

	mu      sync.RWMutex
	peers   map[string]*peer
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup

	accepted      atomic.Int64
	rateLimited   atomic.Int64
	sendQueueFull atomic.Int64
}

// NewManager creates a new Connection Manager. metrics may be nil.
func NewManager(cfg ManagerConfig, m *metrics.Metrics, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	mgr := &manager{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		router:  make(chan RawMessage, cfg.MessageBufferSize),
		peers:   make(map[string]*peer),
		done:    make(chan struct{}),
	}
	mgr.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     mgr.checkOrigin,
	}
	return mgr
}

// ServeHTTP runs one connection for its whole lifetime.
func (m *manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		m.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := newPeer(uuid.NewString(), conn, m.cfg.Peer, m.logger)
	if !m.register(p) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}
	defer m.wg.Done()

	m.accepted.Add(1)
	m.metrics.ConnectionOpened()
	m.logger.Debug("websocket connected", "conn_id", p.id, "remote", r.RemoteAddr)

	go p.writeLoop()

	m.emit(RawMessage{Kind: KindConnect, ConnID: p.id, ReceivedAt: time.Now()})

	p.readLoop(m.emit, func() {
		m.rateLimited.Add(1)
		m.metrics.IncInboundDropped("rate_limited")
	})

	m.unregister(p.id)
	p.close()

	m.emit(RawMessage{Kind: KindDisconnect, ConnID: p.id, ReceivedAt: time.Now()})
	m.metrics.ConnectionClosed()
	m.logger.Debug("websocket disconnected", "conn_id", p.id)
}

// Messages returns the router channel.
func (m *manager) Messages() <-chan RawMessage {
	return m.router
}

// Deliver queues data for connID.
func (m *manager) Deliver(connID string, data []byte) bool {
	m.mu.RLock()
	p, ok := m.peers[connID]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	if !p.enqueue(data) {
		m.sendQueueFull.Add(1)
		m.logger.Warn("send queue full, dropping frame", "conn_id", connID)
		return false
	}
	return true
}

// Stop closes all connections.
func (m *manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrAlreadyClosed
	}
	m.stopped = true
	close(m.done)
	peers := make([]*peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	m.logger.Info("closing websocket connections", "count", len(peers))
	for _, p := range peers {
		p.close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("connection manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("connection manager stop timed out")
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.RLock()
	connected := len(m.peers)
	m.mu.RUnlock()

	return ManagerStats{
		Connected:     connected,
		Accepted:      m.accepted.Load(),
		RateLimited:   m.rateLimited.Load(),
		SendQueueFull: m.sendQueueFull.Load(),
	}
}

// register adds p unless the manager is stopping. On success the caller owns
// one wg slot.
func (m *manager) register(p *peer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false
	}
	m.peers[p.id] = p
	m.wg.Add(1)
	return true
}

func (m *manager) unregister(connID string) {
	m.mu.Lock()
	delete(m.peers, connID)
	m.mu.Unlock()
}

// emit hands msg to the router, giving up only when the manager is stopping.
func (m *manager) emit(msg RawMessage) {
	select {
	case m.router <- msg:
	case <-m.done:
	}
}

// checkOrigin allows any origin unless AllowedOrigins is set.
func (m *manager) checkOrigin(r *http.Request) bool {
	if len(m.cfg.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients do not send Origin.
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range m.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin || allowed == u.Host {
			return true
		}
	}
	return false
}
