package internal

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Direction tells whether a message was sent by the local user or received
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionUnknown  Direction = "unknown"
)

// ReplyTo is the quoted message a bubble replies to
type ReplyTo struct {
	Sender string `json:"sender" yaml:"sender"`
	Text   string `json:"text" yaml:"text"`
}

// Message is a single captured chat line
type Message struct {
	Text      string    `json:"text" yaml:"text"`
	Timestamp int64     `json:"timestamp" yaml:"timestamp"` // epoch milliseconds
	Direction Direction `json:"type" yaml:"type"`
	Platform  string    `json:"platform" yaml:"platform"`
	SessionID string    `json:"sessionId" yaml:"session_id"`
	ChatTitle string    `json:"chatTitle,omitempty" yaml:"chat_title,omitempty"`
	ReplyTo   *ReplyTo  `json:"replyTo,omitempty" yaml:"reply_to,omitempty"`
}

// GetTimestamp returns the message time as a time.Time
func (m Message) GetTimestamp() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// IsIncoming reports whether the message was received from the other party
func (m Message) IsIncoming() bool {
	return m.Direction == DirectionIncoming
}

// sameContent reports whether two messages carry the same text and direction
func (m Message) sameContent(other Message) bool {
	return m.Text == other.Text && m.Direction == other.Direction
}

// ParseMessages decodes the stored `messages` value. A missing value is an empty list.
func ParseMessages(raw []byte) ([]Message, error) {
	if len(raw) == 0 {
		return []Message{}, nil
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, &ParseError{Source: "kv", Key: KeyMessages, Err: err}
	}
	if messages == nil {
		messages = []Message{}
	}

	return messages, nil
}

// ParseBool decodes a stored boolean flag, defaulting to false
func ParseBool(raw []byte) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}

	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, errors.Wrap(err, "failed to parse flag")
	}
	return v, nil
}
