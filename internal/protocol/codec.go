package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nexmeet/nexmeet-chat/internal/match"
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type findPartnerData struct {
	Country  *string `json:"country"`
	State    *string `json:"state"`
	Interest *string `json:"interest"`
}

type sendMessageData struct {
	PartnerID *string `json:"partnerId"`
	Message   *string `json:"message"`
}

// Decode parses and validates a client frame.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Event {
	case EventFindPartner:
		return decodeFindPartner(env.Data)
	case EventSendMessage:
		return decodeSendMessage(env.Data)
	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// decodeFindPartner treats absent or null data, and absent or null fields, as "any".
func decodeFindPartner(raw json.RawMessage) (Inbound, error) {
	if isNull(raw) {
		return FindPartner{}, nil
	}

	var d findPartnerData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: find_partner: %v", ErrInvalidPayload, err)
	}

	return FindPartner{Filters: match.Filters{
		Country:  deref(d.Country),
		State:    deref(d.State),
		Interest: deref(d.Interest),
	}}, nil
}

func decodeSendMessage(raw json.RawMessage) (Inbound, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("%w: send_message: missing data", ErrInvalidPayload)
	}

	var d sendMessageData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: send_message: %v", ErrInvalidPayload, err)
	}

	return SendMessage{
		PartnerID: deref(d.PartnerID),
		Message:   deref(d.Message),
	}, nil
}

// Encode serializes a server event.
func Encode(ev Outbound) ([]byte, error) {
	return json.Marshal(frame{Event: ev.Name(), Data: ev.payload()})
}

// EncodeFindPartner builds a find_partner frame. Used by clients and tests.
func EncodeFindPartner(f match.Filters) ([]byte, error) {
	return json.Marshal(frame{Event: EventFindPartner, Data: f})
}

// EncodeSendMessage builds a send_message frame. Used by clients and tests.
func EncodeSendMessage(partnerID, message string) ([]byte, error) {
	return json.Marshal(frame{Event: EventSendMessage, Data: SendMessage{
		PartnerID: partnerID,
		Message:   message,
	}})
}

// DecodeOutbound parses a server frame on the client side.
func DecodeOutbound(data []byte) (Outbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Event {
	case EventConnected:
		var id string
		if err := json.Unmarshal(env.Data, &id); err != nil {
			return nil, fmt.Errorf("%w: connected: %v", ErrInvalidPayload, err)
		}
		return Connected{ConnID: id}, nil
	case EventPartnerFound:
		var id string
		if err := json.Unmarshal(env.Data, &id); err != nil {
			return nil, fmt.Errorf("%w: partner_found: %v", ErrInvalidPayload, err)
		}
		return PartnerFound{PartnerID: id}, nil
	case EventNoPartnerAvailable:
		return NoPartnerAvailable{}, nil
	case EventReceiveMessage:
		var m ReceiveMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("%w: receive_message: %v", ErrInvalidPayload, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
