package bridge

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Message types exchanged with the browser relay. Engine commands travel
// under their own names (REQUEST_SUGGESTION, SCAN_NOW, ...).
const (
	TypePageUpdate      = "PAGE_UPDATE"
	TypeShowSuggestions = "SHOW_SUGGESTIONS"
	TypeShowWaiting     = "SHOW_WAITING"
	TypeShowLoading     = "SHOW_LOADING"
	TypeAck             = "ACK"
	TypeError           = "ERROR"
)

// Envelope frames every websocket message. Replies reuse the request's ID.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PageUpdate is a serialized page sent by the relay after DOM mutations
type PageUpdate struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// SuggestionsPayload carries SHOW_SUGGESTIONS
type SuggestionsPayload struct {
	Suggestions []string `json:"suggestions"`
	Error       string   `json:"error,omitempty"`
}

// AckPayload acknowledges a message that has no richer answer
type AckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewEnvelope builds an envelope with a fresh ID
func NewEnvelope(typ string, payload any) (Envelope, error) {
	return reply(uuid.NewString(), typ, payload)
}

func reply(id, typ string, payload any) (Envelope, error) {
	env := Envelope{ID: id, Type: typ}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "failed to encode %s payload", typ)
	}
	env.Payload = raw
	return env, nil
}

// Decode unmarshals the envelope's payload into v
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrapf(err, "invalid %s payload", e.Type)
	}
	return nil
}
