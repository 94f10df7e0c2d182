package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nexmeet"

// Pairing outcomes.
const (
	OutcomePaired      = "paired"
	OutcomeWaiting     = "waiting"
	OutcomeFull        = "full"
	OutcomeInvalid     = "invalid"
	OutcomePartnerGone = "partner_gone"
)

// Metrics holds all Prometheus metrics for the pairing server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PairingRequests *prometheus.CounterVec
	WaitingSet      prometheus.Gauge
	Evictions       prometheus.Counter

	MessagesRelayed prometheus.Counter
	MessagesDropped *prometheus.CounterVec

	Connections    prometheus.Gauge
	Disconnects    prometheus.Counter
	InboundDropped *prometheus.CounterVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		PairingRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_requests_total",
			Help:      "Pairing requests by outcome.",
		}, []string{"outcome"}),
		WaitingSet: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_connections",
			Help:      "Connections currently in the waiting set.",
		}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waiting_evictions_total",
			Help:      "Waiting entries evicted after exceeding the waiting TTL.",
		}),
		MessagesRelayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Chat messages delivered to a partner.",
		}),
		MessagesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Chat messages dropped before delivery, by reason.",
		}, []string{"reason"}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		Disconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Websocket connections closed.",
		}),
		InboundDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_frames_dropped_total",
			Help:      "Client frames discarded before routing, by reason.",
		}, []string{"reason"}),
	}
}

// ObservePairing records a pairing request outcome and the resulting waiting set size.
func (m *Metrics) ObservePairing(outcome string, waiting int) {
	if m == nil {
		return
	}
	m.PairingRequests.WithLabelValues(outcome).Inc()
	m.WaitingSet.Set(float64(waiting))
}

// SetWaiting updates the waiting set gauge.
func (m *Metrics) SetWaiting(waiting int) {
	if m == nil {
		return
	}
	m.WaitingSet.Set(float64(waiting))
}

// AddEvictions counts TTL evictions.
func (m *Metrics) AddEvictions(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Evictions.Add(float64(n))
}

// IncRelayed counts a delivered message.
func (m *Metrics) IncRelayed() {
	if m == nil {
		return
	}
	m.MessagesRelayed.Inc()
}

// IncDropped counts a message dropped for reason.
func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

// ConnectionOpened increments the live connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

// ConnectionClosed decrements the live connection gauge and counts the disconnect.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
	m.Disconnects.Inc()
}

// IncInboundDropped counts a client frame discarded for reason.
func (m *Metrics) IncInboundDropped(reason string) {
	if m == nil {
		return
	}
	m.InboundDropped.WithLabelValues(reason).Inc()
}
