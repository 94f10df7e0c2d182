package model

import (
	"time"

	"github.com/google/uuid"
)

// PairingEventKind classifies a pairing lifecycle event.
type PairingEventKind string

const (
	PairingWaiting      PairingEventKind = "waiting"      // Requester left in the waiting set
	PairingPaired       PairingEventKind = "paired"       // Two connections matched
	PairingRejected     PairingEventKind = "rejected"     // Waiting set full, request not queued
	PairingEvicted      PairingEventKind = "evicted"      // Waited longer than the TTL
	PairingDisconnected PairingEventKind = "disconnected" // Transport closed
)

// Valid reports whether k is a known kind.
func (k PairingEventKind) Valid() bool {
	switch k {
	case PairingWaiting, PairingPaired, PairingRejected, PairingEvicted, PairingDisconnected:
		return true
	}
	return false
}

// PairingEvent is one entry of the pairing journal.
type PairingEvent struct {
	EventID    uuid.UUID
	Kind       PairingEventKind
	ConnID     string
	PartnerID  string    // Paired only
	SessionID  uuid.UUID // Paired only; uuid.Nil otherwise
	Country    string    // Requester filters ("" = any)
	State      string
	Interest   string
	WasWaiting bool // Disconnected only
	OccurredAt time.Time
}

// NewPairingEvent returns an event of kind for connID with a fresh id.
func NewPairingEvent(kind PairingEventKind, connID string, at time.Time) PairingEvent {
	return PairingEvent{
		EventID:    uuid.New(),
		Kind:       kind,
		ConnID:     connID,
		OccurredAt: at,
	}
}
