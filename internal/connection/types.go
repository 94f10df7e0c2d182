package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// MessageKind distinguishes transport events on the Messages channel.
type MessageKind int

const (
	KindConnect MessageKind = iota
	KindFrame
	KindDisconnect
)

func (k MessageKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindFrame:
		return "frame"
	case KindDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// RawMessage is a message from Connection Manager to Message Router.
type RawMessage struct {
	Kind       MessageKind
	ConnID     string    // Transport-assigned connection id
	Data       []byte    // Raw frame bytes (KindFrame only)
	ReceivedAt time.Time // Local timestamp when the event was observed
}

// PeerConfig configures a single websocket connection.
type PeerConfig struct {
	SendBufferSize int           // Outbound frame queue length
	MaxMessageSize int64         // Largest inbound frame accepted, in bytes
	WriteTimeout   time.Duration // Write deadline for frames and control messages
	PingInterval   time.Duration // How often the server pings the client
	PongTimeout    time.Duration // Max time without a pong before the connection is stale
	RateLimit      float64       // Inbound frames per second (0 = unlimited)
	RateBurst      int           // Inbound burst size
}

// DefaultPeerConfig returns sensible defaults.
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		SendBufferSize: 64,
		MaxMessageSize: 4096,
		WriteTimeout:   5 * time.Second,
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		RateLimit:      20,
		RateBurst:      40,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Peer              PeerConfig
	MessageBufferSize int      // Buffer size for the output message channel
	ReadBufferSize    int      // Websocket read buffer, in bytes
	WriteBufferSize   int      // Websocket write buffer, in bytes
	AllowedOrigins    []string // Empty allows any origin
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Peer:              DefaultPeerConfig(),
		MessageBufferSize: 10000,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	Connected     int   `json:"connected"`
	Accepted      int64 `json:"accepted"`
	RateLimited   int64 `json:"rate_limited"`
	SendQueueFull int64 `json:"send_queue_full"`
}
