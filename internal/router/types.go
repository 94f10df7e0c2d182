package router

import (
	"errors"

	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/model"
)

// ErrStopped is returned by Run once the routing goroutine has exited.
var ErrStopped = errors.New("router stopped")

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	JournalEnabled    bool // Record pairing events for the journal writer
	JournalBufferSize int  // Initial journal buffer capacity. Default: 1000
	JournalMaxSize    int  // Journal buffer ceiling (0 = unbounded). Default: 100000
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		JournalEnabled:    false,
		JournalBufferSize: 1000,
		JournalMaxSize:    100000,
	}
}

// Service is the pairing logic the router dispatches to.
// *session.Service implements it.
type Service interface {
	Connect(connID string)
	FindPartner(connID string, filters match.Filters) (match.Outcome, error)
	Relay(senderID, partnerID, content string) error
	Disconnect(connID string) bool
}

// Recorder accepts pairing journal events.
type Recorder interface {
	Record(ev model.PairingEvent)
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64       `json:"messages_received"`
	MessagesRouted   int64       `json:"messages_routed"`
	ParseErrors      int64       `json:"parse_errors"`
	UnknownEvents    int64       `json:"unknown_events"`
	InvalidRequests  int64       `json:"invalid_requests"`
	RelayDrops       int64       `json:"relay_drops"`
	Journal          BufferStats `json:"journal"`
}

// Inbound frame drop reasons.
const (
	dropParseError   = "parse_error"
	dropUnknownEvent = "unknown_event"
)
