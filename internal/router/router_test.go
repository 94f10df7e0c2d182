package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nexmeet/nexmeet-chat/internal/connection"
	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/model"
	"github.com/nexmeet/nexmeet-chat/internal/session"
)

// fakeService records calls in order.
type fakeService struct {
	mu      sync.Mutex
	calls   []string
	filters []match.Filters
	relays  [][3]string

	outcome    match.Outcome
	findErr    error
	relayErr   error
	wasWaiting bool
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeService) Connect(connID string) { f.record("connect:" + connID) }

func (f *fakeService) FindPartner(connID string, filters match.Filters) (match.Outcome, error) {
	f.record("find:" + connID)
	f.mu.Lock()
	f.filters = append(f.filters, filters)
	f.mu.Unlock()
	return f.outcome, f.findErr
}

func (f *fakeService) Relay(senderID, partnerID, content string) error {
	f.record("relay:" + senderID)
	f.mu.Lock()
	f.relays = append(f.relays, [3]string{senderID, partnerID, content})
	f.mu.Unlock()
	return f.relayErr
}

func (f *fakeService) Disconnect(connID string) bool {
	f.record("disconnect:" + connID)
	return f.wasWaiting
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func startRouter(t *testing.T, cfg RouterConfig, svc Service) (Router, chan connection.RawMessage) {
	t.Helper()
	input := make(chan connection.RawMessage, 16)
	r := NewRouter(cfg, input, svc, nil, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(ctx)
	})
	return r, input
}

func frame(connID, data string) connection.RawMessage {
	return connection.RawMessage{Kind: connection.KindFrame, ConnID: connID, Data: []byte(data), ReceivedAt: time.Now()}
}

func waitReceived(t *testing.T, r Router, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.Stats().MessagesReceived < n {
		if time.Now().After(deadline) {
			t.Fatalf("MessagesReceived = %d, want %d", r.Stats().MessagesReceived, n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()

	if cfg.JournalEnabled {
		t.Error("JournalEnabled should default to false")
	}
	if cfg.JournalBufferSize != 1000 {
		t.Errorf("JournalBufferSize = %d, want 1000", cfg.JournalBufferSize)
	}
	if cfg.JournalMaxSize != 100000 {
		t.Errorf("JournalMaxSize = %d, want 100000", cfg.JournalMaxSize)
	}
}

func TestRouter_StartStop(t *testing.T) {
	input := make(chan connection.RawMessage)
	r := NewRouter(DefaultRouterConfig(), input, &fakeService{}, nil, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if r.Journal() != nil {
		t.Error("Journal() should be nil when journaling is disabled")
	}
}

func TestRouter_DispatchInArrivalOrder(t *testing.T) {
	svc := &fakeService{}
	r, input := startRouter(t, DefaultRouterConfig(), svc)

	input <- connection.RawMessage{Kind: connection.KindConnect, ConnID: "x"}
	input <- frame("x", `{"event":"find_partner","data":{"country":"US"}}`)
	input <- frame("x", `{"event":"send_message","data":{"partnerId":"y","message":"hi"}}`)
	input <- connection.RawMessage{Kind: connection.KindDisconnect, ConnID: "x"}

	waitReceived(t, r, 4)

	want := []string{"connect:x", "find:x", "relay:x", "disconnect:x"}
	got := svc.Calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if svc.filters[0] != (match.Filters{Country: "US"}) {
		t.Errorf("filters = %+v, want country US", svc.filters[0])
	}
	if svc.relays[0] != [3]string{"x", "y", "hi"} {
		t.Errorf("relay = %v", svc.relays[0])
	}

	stats := r.Stats()
	if stats.MessagesRouted != 4 {
		t.Errorf("MessagesRouted = %d, want 4", stats.MessagesRouted)
	}
}

func TestRouter_BadFrames(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantParse   int64
		wantUnknown int64
	}{
		{"not json", `hello`, 1, 0},
		{"unknown event", `{"event":"typing","data":{}}`, 0, 1},
		{"bad payload", `{"event":"find_partner","data":"US"}`, 1, 0},
		{"send without data", `{"event":"send_message"}`, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			r, input := startRouter(t, DefaultRouterConfig(), svc)

			input <- frame("x", tt.data)
			waitReceived(t, r, 1)

			stats := r.Stats()
			if stats.ParseErrors != tt.wantParse {
				t.Errorf("ParseErrors = %d, want %d", stats.ParseErrors, tt.wantParse)
			}
			if stats.UnknownEvents != tt.wantUnknown {
				t.Errorf("UnknownEvents = %d, want %d", stats.UnknownEvents, tt.wantUnknown)
			}
			if stats.MessagesRouted != 0 {
				t.Errorf("MessagesRouted = %d, want 0", stats.MessagesRouted)
			}
			if calls := svc.Calls(); len(calls) != 0 {
				t.Errorf("service calls = %v, want none", calls)
			}
		})
	}
}

func TestRouter_CountsFailures(t *testing.T) {
	svc := &fakeService{
		findErr:  match.ErrInvalidRequest,
		relayErr: session.ErrEmptyMessage,
	}
	r, input := startRouter(t, DefaultRouterConfig(), svc)

	input <- frame("", `{"event":"find_partner"}`)
	input <- frame("x", `{"event":"send_message","data":{"partnerId":"y","message":"  "}}`)
	waitReceived(t, r, 2)

	stats := r.Stats()
	if stats.InvalidRequests != 1 {
		t.Errorf("InvalidRequests = %d, want 1", stats.InvalidRequests)
	}
	if stats.RelayDrops != 1 {
		t.Errorf("RelayDrops = %d, want 1", stats.RelayDrops)
	}
}

func TestRouter_Journal(t *testing.T) {
	sessionID := uuid.New()
	svc := &fakeService{
		outcome: match.Outcome{
			Paired:  true,
			Partner: "y",
			Session: match.Session{ID: sessionID, A: "y", B: "x"},
		},
		wasWaiting: true,
	}
	cfg := DefaultRouterConfig()
	cfg.JournalEnabled = true
	r, input := startRouter(t, cfg, svc)

	input <- frame("x", `{"event":"find_partner","data":{"country":"US","interest":"music"}}`)
	input <- frame("x", `{"event":"send_message","data":{"partnerId":"y","message":"hi"}}`)
	input <- connection.RawMessage{Kind: connection.KindDisconnect, ConnID: "x"}
	waitReceived(t, r, 3)

	events := r.Journal().DrainTo(0)
	if len(events) != 2 {
		t.Fatalf("journal has %d events, want 2 (messages are not journaled)", len(events))
	}

	paired := events[0]
	if paired.Kind != model.PairingPaired {
		t.Errorf("Kind = %q, want %q", paired.Kind, model.PairingPaired)
	}
	if paired.PartnerID != "y" || paired.SessionID != sessionID {
		t.Errorf("paired event = %+v", paired)
	}
	if paired.Country != "US" || paired.Interest != "music" || paired.State != "" {
		t.Errorf("filters = %q/%q/%q", paired.Country, paired.State, paired.Interest)
	}

	disc := events[1]
	if disc.Kind != model.PairingDisconnected || !disc.WasWaiting {
		t.Errorf("disconnect event = %+v", disc)
	}
}

func TestRouter_JournalOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome match.Outcome
		err     error
		want    model.PairingEventKind
		wantLen int
	}{
		{"waiting", match.Outcome{}, nil, model.PairingWaiting, 1},
		{"full", match.Outcome{}, match.ErrRegistryFull, model.PairingRejected, 1},
		{"invalid", match.Outcome{}, match.ErrInvalidRequest, "", 0},
		{"unexpected error", match.Outcome{}, errors.New("boom"), "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{outcome: tt.outcome, findErr: tt.err}
			cfg := DefaultRouterConfig()
			cfg.JournalEnabled = true
			r, input := startRouter(t, cfg, svc)

			input <- frame("x", `{"event":"find_partner"}`)
			waitReceived(t, r, 1)

			events := r.Journal().DrainTo(0)
			if len(events) != tt.wantLen {
				t.Fatalf("journal has %d events, want %d", len(events), tt.wantLen)
			}
			if tt.wantLen > 0 && events[0].Kind != tt.want {
				t.Errorf("Kind = %q, want %q", events[0].Kind, tt.want)
			}
		})
	}
}

func TestRouter_RecordAfterStop(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.JournalEnabled = true
	r := NewRouter(cfg, make(chan connection.RawMessage), &fakeService{}, nil, nil)
	r.Start(context.Background())

	r.Record(model.NewPairingEvent(model.PairingEvicted, "x", time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)

	r.Record(model.NewPairingEvent(model.PairingEvicted, "y", time.Now()))

	events := r.Journal().DrainTo(0)
	if len(events) != 1 || events[0].ConnID != "x" {
		t.Errorf("journal = %+v, want only the event recorded before Stop", events)
	}
}
