package session

import "errors"

// Relay errors. None of them are reported to the sender; they exist for logs and metrics.
var (
	ErrMissingPartner     = errors.New("missing partner id")
	ErrEmptyMessage       = errors.New("empty message")
	ErrPartnerUnreachable = errors.New("partner not connected")
	ErrNotPaired          = errors.New("sender and partner are not paired")
)

// Drop reasons used as metric labels.
const (
	DropMissingPartner = "missing_partner"
	DropEmptyMessage   = "empty_message"
	DropUnreachable    = "partner_unreachable"
	DropNotPaired      = "not_paired"
)

// Outbox delivers encoded frames to live connections. Deliver returns false
// when connID is not connected or cannot accept the frame.
type Outbox interface {
	Deliver(connID string, data []byte) bool
}

// Config configures the Service.
type Config struct {
	// RequirePairing restricts Relay to the two sides of a live pairing.
	RequirePairing bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequirePairing: false,
	}
}

// Stats is a point-in-time view of the Service.
type Stats struct {
	Waiting  int `json:"waiting"`
	Sessions int `json:"sessions"`
}
