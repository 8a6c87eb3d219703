package internal

import (
	"strings"
	"time"
)

const zeroWidthSpace = "\u200b"

// NormalizeText strips zero-width spaces, collapses whitespace runs to a single
// space and trims the result. NormalizeText(NormalizeText(s)) == NormalizeText(s).
func NormalizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, zeroWidthSpace, "")), " ")
}

// NormalizeMessage returns a copy of msg with normalized text fields and defaults
// filled in for anything the capture path could not determine.
func NormalizeMessage(msg Message, now time.Time) Message {
	msg.Text = NormalizeText(msg.Text)
	msg.ChatTitle = NormalizeText(msg.ChatTitle)

	if msg.Direction == "" {
		msg.Direction = DirectionUnknown
	}
	if msg.Timestamp <= 0 {
		msg.Timestamp = now.UnixMilli()
	}
	if msg.ReplyTo != nil {
		reply := *msg.ReplyTo
		reply.Sender = NormalizeText(reply.Sender)
		reply.Text = NormalizeText(reply.Text)
		if reply.Text == "" {
			msg.ReplyTo = nil
		} else {
			msg.ReplyTo = &reply
		}
	}

	return msg
}

// formatTimestamp formats an epoch-millisecond timestamp as RFC3339
func formatTimestamp(ts int64) string {
	return time.UnixMilli(ts).Format(time.RFC3339)
}

// FormatTimestamp is the exported form used by exporters and the CLI
func FormatTimestamp(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return formatTimestamp(ts)
}
