package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePairing(OutcomeWaiting, 1)
	m.ObservePairing(OutcomePaired, 0)
	m.ObservePairing(OutcomePaired, 0)
	m.IncDropped("empty_message")
	m.IncRelayed()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.AddEvictions(3)

	if got := testutil.ToFloat64(m.PairingRequests.WithLabelValues(OutcomePaired)); got != 2 {
		t.Errorf("paired = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WaitingSet); got != 0 {
		t.Errorf("waiting = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.MessagesDropped.WithLabelValues("empty_message")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Connections); got != 1 {
		t.Errorf("connections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Disconnects); got != 1 {
		t.Errorf("disconnects = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Evictions); got != 3 {
		t.Errorf("evictions = %v, want 3", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.ObservePairing(OutcomePaired, 0)
	m.SetWaiting(1)
	m.AddEvictions(1)
	m.IncRelayed()
	m.IncDropped("x")
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.IncInboundDropped("x")
}
