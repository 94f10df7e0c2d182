package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/metrics"
	"github.com/nexmeet/nexmeet-chat/internal/protocol"
)

// Service coordinates the Registry with client notifications.
type Service struct {
	cfg      Config
	registry *match.Registry
	outbox   Outbox
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]match.Session // connID → live pairing
}

// NewService creates a Service. metrics may be nil.
func NewService(cfg Config, registry *match.Registry, outbox Outbox, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:      cfg,
		registry: registry,
		outbox:   outbox,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]match.Session),
	}
}

// Connect tells a new connection its id.
func (s *Service) Connect(connID string) {
	s.send(connID, protocol.Connected{ConnID: connID})
}

// FindPartner handles a pairing request from connID.
//
// A paired outcome sends partner_found to both sides. A waiting outcome, or a
// full waiting set, sends no_partner_available to connID only. An invalid
// request sends nothing. A chosen partner that can no longer be reached is
// skipped and the search repeats.
func (s *Service) FindPartner(connID string, filters match.Filters) (match.Outcome, error) {
	// Re-entering the waiting set ends any earlier pairing.
	s.forget(connID)

	var (
		out match.Outcome
		err error
	)
	for {
		out, err = s.registry.RequestPairing(connID, filters)
		switch {
		case errors.Is(err, match.ErrInvalidRequest):
			s.metrics.ObservePairing(metrics.OutcomeInvalid, s.registry.Len())
			return out, err
		case errors.Is(err, match.ErrRegistryFull):
			s.metrics.ObservePairing(metrics.OutcomeFull, s.registry.Len())
			s.send(connID, protocol.NoPartnerAvailable{})
			return out, err
		case err != nil:
			return out, err
		}

		if !out.Paired {
			s.metrics.ObservePairing(metrics.OutcomeWaiting, s.registry.Len())
			s.send(connID, protocol.NoPartnerAvailable{})
			return out, nil
		}

		// The partner is told first. A partner whose transport closed before
		// its disconnect was routed is already out of the waiting set, so the
		// retry searches the remaining entries.
		if s.send(out.Partner, protocol.PartnerFound{PartnerID: connID}) {
			break
		}
		s.metrics.ObservePairing(metrics.OutcomePartnerGone, s.registry.Len())
		s.logger.Info("chosen partner unreachable, searching again",
			"conn_id", connID,
			"partner_id", out.Partner,
		)
	}

	s.mu.Lock()
	s.sessions[out.Session.A] = out.Session
	s.sessions[out.Session.B] = out.Session
	s.mu.Unlock()

	s.metrics.ObservePairing(metrics.OutcomePaired, s.registry.Len())

	s.send(connID, protocol.PartnerFound{PartnerID: out.Partner})

	s.logger.Info("partners paired",
		"session_id", out.Session.ID,
		"conn_id", connID,
		"partner_id", out.Partner,
	)

	return out, nil
}

// Relay forwards content from senderID to partnerID.
//
// Surrounding whitespace is trimmed. Empty content, a missing partner, or a
// partner that is no longer connected drops the message; the returned error
// only describes why.
func (s *Service) Relay(senderID, partnerID, content string) error {
	if partnerID == "" {
		s.metrics.IncDropped(DropMissingPartner)
		return ErrMissingPartner
	}

	message := strings.TrimSpace(content)
	if message == "" {
		s.metrics.IncDropped(DropEmptyMessage)
		return ErrEmptyMessage
	}

	if s.cfg.RequirePairing && !s.paired(senderID, partnerID) {
		s.metrics.IncDropped(DropNotPaired)
		return ErrNotPaired
	}

	if !s.send(partnerID, protocol.ReceiveMessage{SenderID: senderID, Message: message}) {
		s.metrics.IncDropped(DropUnreachable)
		return ErrPartnerUnreachable
	}

	s.metrics.IncRelayed()
	return nil
}

// Disconnect purges connID after its transport closed. It reports whether
// connID was waiting. The partner of a paired connection is not notified.
func (s *Service) Disconnect(connID string) bool {
	removed := s.registry.Remove(connID)
	s.forget(connID)
	s.metrics.SetWaiting(s.registry.Len())

	s.logger.Debug("connection reconciled",
		"conn_id", connID,
		"was_waiting", removed,
	)
	return removed
}

// Evict tells connections dropped from the waiting set to try again.
func (s *Service) Evict(entries []match.Entry) {
	for _, e := range entries {
		s.send(e.ConnID, protocol.NoPartnerAvailable{})
	}
	s.metrics.AddEvictions(len(entries))
	s.metrics.SetWaiting(s.registry.Len())
}

// Session returns the live pairing connID belongs to.
func (s *Service) Session(connID string) (match.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[connID]
	return sess, ok
}

// Stats returns current statistics.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	sessions := len(s.sessions) / 2
	s.mu.Unlock()

	return Stats{
		Waiting:  s.registry.Len(),
		Sessions: sessions,
	}
}

// paired reports whether a and b are the two sides of one live session.
func (s *Service) paired(a, b string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[a]
	return ok && sess.Peer(a) == b
}

// forget ends the session connID belongs to, for both sides.
func (s *Service) forget(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return
	}
	delete(s.sessions, connID)

	peer := sess.Peer(connID)
	if other, ok := s.sessions[peer]; ok && other.ID == sess.ID {
		delete(s.sessions, peer)
	}
}

func (s *Service) send(connID string, ev protocol.Outbound) bool {
	data, err := protocol.Encode(ev)
	if err != nil {
		s.logger.Error("failed to encode event", "event", ev.Name(), "error", err)
		return false
	}

	if !s.outbox.Deliver(connID, data) {
		s.logger.Debug("event not delivered", "event", ev.Name(), "conn_id", connID)
		return false
	}
	return true
}
