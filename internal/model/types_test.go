package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewPairingEvent(t *testing.T) {
	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	a := NewPairingEvent(PairingWaiting, "conn-1", at)
	b := NewPairingEvent(PairingWaiting, "conn-1", at)

	if a.EventID == uuid.Nil {
		t.Error("EventID should be set")
	}
	if a.EventID == b.EventID {
		t.Error("EventIDs should be unique")
	}
	if a.Kind != PairingWaiting {
		t.Errorf("Kind = %q, want %q", a.Kind, PairingWaiting)
	}
	if a.ConnID != "conn-1" {
		t.Errorf("ConnID = %q, want %q", a.ConnID, "conn-1")
	}
	if !a.OccurredAt.Equal(at) {
		t.Errorf("OccurredAt = %v, want %v", a.OccurredAt, at)
	}
	if a.SessionID != uuid.Nil {
		t.Errorf("SessionID = %v, want nil uuid", a.SessionID)
	}
}

func TestPairingEventKind_Valid(t *testing.T) {
	for _, k := range []PairingEventKind{PairingWaiting, PairingPaired, PairingRejected, PairingEvicted, PairingDisconnected} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if PairingEventKind("relayed").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
