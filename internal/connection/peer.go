package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// peer is a single accepted websocket connection.
type peer struct {
	id     string
	cfg    PeerConfig
	conn   *websocket.Conn
	logger *slog.Logger

	limiter *rate.Limiter // nil = unlimited

	// Outbound queue, drained only by writeLoop
	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	// State
	mu         sync.RWMutex
	lastPongAt time.Time
}

func newPeer(id string, conn *websocket.Conn, cfg PeerConfig, logger *slog.Logger) *peer {
	defaults := DefaultPeerConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaults.PongTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	p := &peer{
		id:         id,
		cfg:        cfg,
		conn:       conn,
		logger:     logger.With("conn_id", id),
		send:       make(chan []byte, cfg.SendBufferSize),
		done:       make(chan struct{}),
		lastPongAt: time.Now(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	// Client responds to our ping
	conn.SetPongHandler(func(string) error {
		p.touch()
		return nil
	})

	return p
}

// enqueue queues data for the write loop without blocking.
// Returns false if the peer is closed or its queue is full.
func (p *peer) enqueue(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// close signals the write loop to send a close frame and shut the socket.
func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

func (p *peer) touch() {
	p.mu.Lock()
	p.lastPongAt = time.Now()
	p.mu.Unlock()
}

// readLoop reads frames until the connection fails or is closed. Frames over
// the rate limit are passed to onDrop instead of emit.
func (p *peer) readLoop(emit func(RawMessage), onDrop func()) {
	for {
		_, data, err := p.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			select {
			case <-p.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					p.logger.Debug("websocket read failed", "error", err)
				}
			}
			return
		}

		p.touch()

		if p.limiter != nil && !p.limiter.Allow() {
			p.logger.Warn("inbound rate limit exceeded, dropping frame")
			onDrop()
			continue
		}

		emit(RawMessage{
			Kind:       KindFrame,
			ConnID:     p.id,
			Data:       data,
			ReceivedAt: receivedAt,
		})
	}
}

// writeLoop is the only writer on the socket. It drains the send queue,
// pings the client, and closes the socket once done is closed or the
// connection goes stale.
func (p *peer) writeLoop() {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case <-p.done:
			p.drain()
			p.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return

		case data := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				p.logger.Debug("websocket write failed", "error", err)
				p.close()
				return
			}

		case <-ticker.C:
			p.mu.RLock()
			lastPong := p.lastPongAt
			p.mu.RUnlock()

			if time.Since(lastPong) > p.cfg.PongTimeout {
				p.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", p.cfg.PongTimeout,
				)
				p.close()
				return
			}

			deadline := time.Now().Add(p.cfg.WriteTimeout)
			if err := p.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				p.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

// drain writes frames still queued when the peer closes, giving up at the
// write deadline.
func (p *peer) drain() {
	p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
	for {
		select {
		case data := <-p.send:
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				p.logger.Debug("websocket write failed while draining", "error", err)
				return
			}
		default:
			return
		}
	}
}
