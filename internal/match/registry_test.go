package match

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(cfg Config) *Registry {
	return NewRegistry(cfg, rand.New(rand.NewPCG(1, 2)), nil)
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b Filters
		want bool
	}{
		{"all any", Filters{}, Filters{}, true},
		{"equal concrete", Filters{Country: "US"}, Filters{Country: "US"}, true},
		{"different country", Filters{Country: "US"}, Filters{Country: "FR"}, false},
		{"any matches concrete", Filters{Country: "US"}, Filters{}, true},
		{"concrete matches any", Filters{}, Filters{Country: "US", State: "CA", Interest: "music"}, true},
		{"one field differs", Filters{Country: "US", State: "CA"}, Filters{Country: "US", State: "NY"}, false},
		{"mixed wildcards", Filters{Country: "US", Interest: "music"}, Filters{State: "CA", Interest: "music"}, true},
		{"interest differs", Filters{Interest: "music"}, Filters{Interest: "sports"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compatible(tt.a, tt.b); got != tt.want {
				t.Errorf("Compatible(%+v, %+v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompatible_Symmetric(t *testing.T) {
	values := []string{Any, "US", "FR"}

	var all []Filters
	for _, c := range values {
		for _, s := range values {
			for _, i := range values {
				all = append(all, Filters{Country: c, State: s, Interest: i})
			}
		}
	}

	for _, a := range all {
		for _, b := range all {
			if Compatible(a, b) != Compatible(b, a) {
				t.Fatalf("Compatible not symmetric for %+v and %+v", a, b)
			}
		}
	}
}

func TestCompatible_AnyWildcard(t *testing.T) {
	for _, v := range []string{"US", "CA", "music", " "} {
		if !Compatible(Filters{Country: Any}, Filters{Country: v}) {
			t.Errorf("country any should accept %q", v)
		}
		if !Compatible(Filters{State: v}, Filters{State: Any}) {
			t.Errorf("state any should accept %q", v)
		}
		if !Compatible(Filters{Interest: Any}, Filters{Interest: v}) {
			t.Errorf("interest any should accept %q", v)
		}
	}
}

func TestRegistry_InvalidRequest(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	_, err := r.RequestPairing("", Filters{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_AllAnyPairs(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	out, err := r.RequestPairing("X", Filters{})
	if err != nil {
		t.Fatalf("RequestPairing(X) failed: %v", err)
	}
	if out.Paired {
		t.Fatal("X should not be paired while alone")
	}

	out, err = r.RequestPairing("Y", Filters{})
	if err != nil {
		t.Fatalf("RequestPairing(Y) failed: %v", err)
	}
	if !out.Paired {
		t.Fatal("Y should be paired with X")
	}
	if out.Partner != "X" {
		t.Errorf("Partner = %q, want %q", out.Partner, "X")
	}
	if out.Session.A != "Y" || out.Session.B != "X" {
		t.Errorf("Session = %+v, want A=Y B=X", out.Session)
	}
	if out.Session.Peer("X") != "Y" || out.Session.Peer("Y") != "X" {
		t.Errorf("Session.Peer mismatch: %+v", out.Session)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after pairing", r.Len())
	}
}

func TestRegistry_IncompatibleStayWaiting(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	if _, err := r.RequestPairing("X", Filters{Country: "US"}); err != nil {
		t.Fatalf("RequestPairing(X) failed: %v", err)
	}
	out, err := r.RequestPairing("Y", Filters{Country: "FR"})
	if err != nil {
		t.Fatalf("RequestPairing(Y) failed: %v", err)
	}
	if out.Paired {
		t.Fatal("US and FR should not pair")
	}
	if !r.Contains("X") || !r.Contains("Y") {
		t.Error("both X and Y should remain waiting")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_AnySatisfiesConcrete(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	r.RequestPairing("X", Filters{Country: "US"})
	out, _ := r.RequestPairing("Y", Filters{Country: Any})

	if !out.Paired || out.Partner != "X" {
		t.Fatalf("outcome = %+v, want paired with X", out)
	}
}

func TestRegistry_ReRequestReplaces(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	r.RequestPairing("X", Filters{Country: "US"})
	r.RequestPairing("X", Filters{Country: "FR"})

	waiting := r.Waiting()
	if len(waiting) != 1 {
		t.Fatalf("len(waiting) = %d, want 1", len(waiting))
	}
	if waiting[0].Filters.Country != "FR" {
		t.Errorf("Country = %q, want latest %q", waiting[0].Filters.Country, "FR")
	}

	// Old filters no longer match.
	out, _ := r.RequestPairing("Y", Filters{Country: "US"})
	if out.Paired {
		t.Error("Y(US) should not pair with X after X switched to FR")
	}
}

func TestRegistry_NoSelfMatch(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	for i := 0; i < 5; i++ {
		out, err := r.RequestPairing("X", Filters{})
		if err != nil {
			t.Fatalf("RequestPairing failed: %v", err)
		}
		if out.Paired {
			t.Fatalf("X paired with %q on attempt %d", out.Partner, i)
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	r.RequestPairing("X", Filters{})
	if !r.Remove("X") {
		t.Error("first Remove should report removal")
	}
	if r.Remove("X") {
		t.Error("second Remove should be a no-op")
	}
	if r.Remove("never-seen") {
		t.Error("Remove of unknown id should be a no-op")
	}

	// A later request never selects the removed connection.
	out, _ := r.RequestPairing("Y", Filters{})
	if out.Paired {
		t.Errorf("Y paired with removed connection %q", out.Partner)
	}
}

func TestRegistry_RemoveKeepsIndexConsistent(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	r.RequestPairing("A", Filters{Country: "1"})
	r.RequestPairing("B", Filters{Country: "2"})
	r.RequestPairing("C", Filters{Country: "3"})

	r.Remove("A")

	if r.Contains("A") {
		t.Error("A should be gone")
	}
	if !r.Contains("B") || !r.Contains("C") {
		t.Error("B and C should remain")
	}

	out, _ := r.RequestPairing("D", Filters{Country: "3"})
	if !out.Paired || out.Partner != "C" {
		t.Errorf("outcome = %+v, want paired with C", out)
	}
	if r.Len() != 1 || !r.Contains("B") {
		t.Errorf("waiting = %+v, want only B", r.Waiting())
	}
}

func TestRegistry_RandomTieBreak(t *testing.T) {
	counts := make(map[string]int)

	rng := rand.New(rand.NewPCG(42, 42))
	for i := 0; i < 3000; i++ {
		r := NewRegistry(DefaultConfig(), rng, nil)
		r.RequestPairing("A", Filters{Country: "1"})
		r.RequestPairing("B", Filters{Country: "2"})
		r.RequestPairing("C", Filters{Country: "3"})

		waiting := r.Len()
		out, _ := r.RequestPairing("Z", Filters{})
		if !out.Paired {
			t.Fatalf("Z should pair, waiting=%d", waiting)
		}
		counts[out.Partner]++
	}

	if len(counts) < 2 {
		t.Fatalf("tie-break picked only %v", counts)
	}
	for id, n := range counts {
		// Expect roughly 1000 each; allow generous slack.
		if n < 700 || n > 1300 {
			t.Errorf("candidate %s chosen %d times, want ~1000 (counts=%v)", id, n, counts)
		}
	}
}

func TestRegistry_SeededDeterministic(t *testing.T) {
	run := func() []string {
		r := NewRegistry(Config{Seed: 7}, nil, nil)
		for i := 0; i < 10; i++ {
			r.RequestPairing(fmt.Sprintf("w%d", i), Filters{Country: fmt.Sprint(i)})
		}
		var partners []string
		for i := 0; i < 5; i++ {
			out, _ := r.RequestPairing(fmt.Sprintf("q%d", i), Filters{})
			partners = append(partners, out.Partner)
		}
		return partners
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run differs at %d: %v vs %v", i, a, b)
		}
	}
}

func TestRegistry_MaxWaiting(t *testing.T) {
	r := newTestRegistry(Config{MaxWaiting: 2})

	r.RequestPairing("A", Filters{Country: "1"})
	r.RequestPairing("B", Filters{Country: "2"})

	_, err := r.RequestPairing("C", Filters{Country: "3"})
	if !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("err = %v, want ErrRegistryFull", err)
	}
	if r.Contains("C") {
		t.Error("C should not be queued when full")
	}

	// Already-waiting connections can still update their filters.
	if _, err := r.RequestPairing("A", Filters{Country: "9"}); err != nil {
		t.Errorf("re-request from waiting A failed: %v", err)
	}

	// A full set still pairs compatible newcomers.
	out, err := r.RequestPairing("D", Filters{Country: "2"})
	if err != nil {
		t.Fatalf("RequestPairing(D) failed: %v", err)
	}
	if !out.Paired || out.Partner != "B" {
		t.Errorf("outcome = %+v, want paired with B", out)
	}
}

func TestRegistry_EvictOlderThan(t *testing.T) {
	r := newTestRegistry(DefaultConfig())

	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	now := base
	r.now = func() time.Time { return now }

	r.RequestPairing("old", Filters{Country: "1"})
	now = base.Add(time.Minute)
	r.RequestPairing("new", Filters{Country: "2"})

	evicted := r.EvictOlderThan(base.Add(30 * time.Second))
	if len(evicted) != 1 || evicted[0].ConnID != "old" {
		t.Fatalf("evicted = %+v, want [old]", evicted)
	}
	if r.Contains("old") {
		t.Error("old should be evicted")
	}
	if !r.Contains("new") {
		t.Error("new should remain")
	}
	if got := r.EvictOlderThan(base); len(got) != 0 {
		t.Errorf("second eviction = %+v, want none", got)
	}
}

func TestRegistry_ConcurrentPairingsAreExclusive(t *testing.T) {
	r := NewRegistry(Config{Seed: 99}, nil, nil)

	const n = 200
	var (
		mu       sync.Mutex
		sessions []Session
		wg       sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out, err := r.RequestPairing(id, Filters{})
			if err != nil {
				t.Errorf("RequestPairing(%s) failed: %v", id, err)
				return
			}
			if out.Paired {
				mu.Lock()
				sessions = append(sessions, out.Session)
				mu.Unlock()
			}
		}(fmt.Sprintf("c%d", i))

		// Interleave disconnects of earlier connections.
		if i%10 == 9 {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				r.Remove(id)
			}(fmt.Sprintf("c%d", i-5))
		}
	}
	wg.Wait()

	seen := make(map[string]int)
	for _, s := range sessions {
		if s.A == s.B {
			t.Fatalf("self match: %+v", s)
		}
		seen[s.A]++
		seen[s.B]++
	}
	for id, count := range seen {
		if count > 1 {
			t.Errorf("%s appears in %d pairings", id, count)
		}
		if r.Contains(id) {
			t.Errorf("%s is paired but still waiting", id)
		}
	}
	if r.Len() > 1 {
		// All-any filters: at most one connection can be left unmatched.
		t.Errorf("Len() = %d, want <= 1", r.Len())
	}
}
