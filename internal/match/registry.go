package match

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the waiting set. All methods are safe for concurrent use; each
// call runs under a single exclusive lock, so a search and the removal of the
// pair it found are never interleaved with another request or a disconnect.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	waiting []Entry
	index   map[string]int // connID → position in waiting
	rng     *rand.Rand
	now     func() time.Time
}

// NewRegistry creates an empty Registry. A nil rng is replaced by a PCG source
// seeded from cfg.Seed, or from the clock when cfg.Seed is zero.
func NewRegistry(cfg Config, rng *rand.Rand, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	return &Registry{
		cfg:    cfg,
		logger: logger,
		index:  make(map[string]int),
		rng:    rng,
		now:    time.Now,
	}
}

// RequestPairing registers connID with filters and tries to pair it.
//
// Any earlier entry for connID is replaced. If one or more compatible peers
// are waiting, one is chosen uniformly at random and both sides leave the
// waiting set. Otherwise connID stays waiting and the outcome is not paired.
func (r *Registry) RequestPairing(connID string, filters Filters) (Outcome, error) {
	if connID == "" {
		return Outcome{}, ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, wasWaiting := r.index[connID]
	r.removeLocked(connID)

	candidates := r.candidatesLocked(connID, filters)
	if len(candidates) == 0 {
		if !wasWaiting && r.cfg.MaxWaiting > 0 && len(r.waiting) >= r.cfg.MaxWaiting {
			r.logger.Warn("waiting set full, request not queued",
				"conn_id", connID,
				"max_waiting", r.cfg.MaxWaiting,
			)
			return Outcome{}, ErrRegistryFull
		}
		r.insertLocked(Entry{ConnID: connID, Filters: filters, Since: r.now()})
		return Outcome{}, nil
	}

	partner := candidates[r.rng.IntN(len(candidates))]
	r.removeLocked(partner)

	session := Session{
		ID:        uuid.New(),
		A:         connID,
		B:         partner,
		CreatedAt: r.now(),
	}

	r.logger.Debug("pairing made",
		"session_id", session.ID,
		"conn_id", connID,
		"partner_id", partner,
		"candidates", len(candidates),
	)

	return Outcome{
		Paired:     true,
		Partner:    partner,
		Session:    session,
		Candidates: len(candidates),
	}, nil
}

// Remove drops connID from the waiting set. Removing an absent connection is a no-op.
func (r *Registry) Remove(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(connID)
}

// EvictOlderThan removes and returns every entry that has been waiting since
// before cutoff.
func (r *Registry) EvictOlderThan(cutoff time.Time) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []Entry
	for _, e := range r.waiting {
		if e.Since.Before(cutoff) {
			stale = append(stale, e)
		}
	}
	for _, e := range stale {
		r.removeLocked(e.ConnID)
	}
	return stale
}

// Contains reports whether connID is waiting.
func (r *Registry) Contains(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.index[connID]
	return ok
}

// Len returns the size of the waiting set.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}

// Waiting returns a copy of the waiting set.
func (r *Registry) Waiting() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.waiting))
	copy(out, r.waiting)
	return out
}

// candidatesLocked returns the ids of waiting peers compatible with filters,
// in waiting-set order. Must be called with lock held.
func (r *Registry) candidatesLocked(connID string, filters Filters) []string {
	var ids []string
	for _, e := range r.waiting {
		if e.ConnID == connID {
			continue
		}
		if Compatible(e.Filters, filters) {
			ids = append(ids, e.ConnID)
		}
	}
	return ids
}

// insertLocked appends e. Must be called with lock held and e.ConnID absent.
func (r *Registry) insertLocked(e Entry) {
	r.index[e.ConnID] = len(r.waiting)
	r.waiting = append(r.waiting, e)
}

// removeLocked swaps the entry with the last one and truncates.
// Must be called with lock held.
func (r *Registry) removeLocked(connID string) bool {
	i, ok := r.index[connID]
	if !ok {
		return false
	}

	last := len(r.waiting) - 1
	if i != last {
		r.waiting[i] = r.waiting[last]
		r.index[r.waiting[i].ConnID] = i
	}
	r.waiting[last] = Entry{}
	r.waiting = r.waiting[:last]
	delete(r.index, connID)
	return true
}
