package match

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrInvalidRequest = errors.New("invalid pairing request")
	ErrRegistryFull   = errors.New("waiting set is full")
)

// Any is the wildcard filter value.
const Any = ""

// Filters narrows which peers a connection accepts.
type Filters struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	Interest string `json:"interest"`
}

// IsAny reports whether every field is the wildcard.
func (f Filters) IsAny() bool {
	return f.Country == Any && f.State == Any && f.Interest == Any
}

// Compatible reports whether two filter sets accept each other.
// Each field must be equal or be the wildcard on either side.
func Compatible(a, b Filters) bool {
	return fieldOK(a.Country, b.Country) &&
		fieldOK(a.State, b.State) &&
		fieldOK(a.Interest, b.Interest)
}

func fieldOK(a, b string) bool {
	return a == b || a == Any || b == Any
}

// Entry is a connection in the waiting set.
type Entry struct {
	ConnID  string
	Filters Filters
	Since   time.Time
}

// Session identifies a pairing issued by the Registry.
type Session struct {
	ID        uuid.UUID
	A         string // requester
	B         string // chosen candidate
	CreatedAt time.Time
}

// Peer returns the other side of the session, or "" if connID is not part of it.
func (s Session) Peer(connID string) string {
	switch connID {
	case s.A:
		return s.B
	case s.B:
		return s.A
	}
	return ""
}

// Outcome is the result of a pairing request.
type Outcome struct {
	Paired     bool
	Partner    string  // Set when Paired
	Session    Session // Set when Paired
	Candidates int     // Number of compatible peers seen
}

// Config configures a Registry.
type Config struct {
	MaxWaiting int // 0 = unbounded
	Seed       uint64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWaiting: 0,
	}
}
