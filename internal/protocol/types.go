package protocol

import (
	"encoding/json"
	"errors"

	"github.com/nexmeet/nexmeet-chat/internal/match"
)

// Errors
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Event names.
const (
	EventFindPartner        = "find_partner"
	EventSendMessage        = "send_message"
	EventConnected          = "connected"
	EventPartnerFound       = "partner_found"
	EventNoPartnerAvailable = "no_partner_available"
	EventReceiveMessage     = "receive_message"
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is a validated client → server event.
// Implemented by FindPartner and SendMessage.
type Inbound interface {
	inbound()
	Name() string
}

// FindPartner requests pairing. Absent fields mean "any".
type FindPartner struct {
	Filters match.Filters
}

func (FindPartner) inbound()     {}
func (FindPartner) Name() string { return EventFindPartner }

// SendMessage asks for a message to be relayed to PartnerID.
type SendMessage struct {
	PartnerID string `json:"partnerId"`
	Message   string `json:"message"`
}

func (SendMessage) inbound()     {}
func (SendMessage) Name() string { return EventSendMessage }

// Outbound is a server → client event.
// Implemented by Connected, PartnerFound, NoPartnerAvailable and ReceiveMessage.
type Outbound interface {
	outbound()
	Name() string
	payload() any
}

// Connected tells a client its own connection id.
type Connected struct {
	ConnID string
}

func (Connected) outbound()      {}
func (Connected) Name() string   { return EventConnected }
func (e Connected) payload() any { return e.ConnID }

// PartnerFound is delivered to both sides of a pairing.
type PartnerFound struct {
	PartnerID string
}

func (PartnerFound) outbound()      {}
func (PartnerFound) Name() string   { return EventPartnerFound }
func (e PartnerFound) payload() any { return e.PartnerID }

// NoPartnerAvailable is delivered to a requester left waiting.
type NoPartnerAvailable struct{}

func (NoPartnerAvailable) outbound()    {}
func (NoPartnerAvailable) Name() string { return EventNoPartnerAvailable }
func (NoPartnerAvailable) payload() any { return nil }

// ReceiveMessage carries a relayed message to the partner.
type ReceiveMessage struct {
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
}

func (ReceiveMessage) outbound()      {}
func (ReceiveMessage) Name() string   { return EventReceiveMessage }
func (e ReceiveMessage) payload() any { return e }
