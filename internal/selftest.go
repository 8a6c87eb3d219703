package internal

import (
	"context"
	"fmt"
	"time"
)

// SelfTestSessionID is the session the self test seeds
const SelfTestSessionID = "selftest::local"

// SelfTestMessages returns four outgoing seed messages followed by an incoming
// one, newest first, one second apart ending at now.
func SelfTestMessages(now time.Time) []Message {
	var chronological []Message
	for i := 1; i <= 4; i++ {
		chronological = append(chronological, Message{
			Text:      fmt.Sprintf("Hello, seed %d", i),
			Direction: DirectionOutgoing,
		})
	}
	chronological = append(chronological, Message{
		Text:      "Incoming test message, please suggest a reply",
		Direction: DirectionIncoming,
	})

	out := make([]Message, len(chronological))
	for i, m := range chronological {
		m.Timestamp = now.Add(-time.Duration(len(chronological)-1-i) * time.Second).UnixMilli()
		m.Platform = "selftest"
		m.SessionID = SelfTestSessionID
		m.ChatTitle = "Self test"
		out[len(chronological)-1-i] = m
	}
	return out
}

// SeedSelfTest writes the self test conversation into store
func SeedSelfTest(ctx context.Context, store *MessageStore, now time.Time) ([]Message, error) {
	msgs := SelfTestMessages(now)
	if err := store.BulkSeed(ctx, SelfTestSessionID, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
