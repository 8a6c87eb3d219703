package internal

import (
	"context"
)

// DefaultHistoryLimit is the per-session history cap
const DefaultHistoryLimit = 5

// MessageStore keeps the newest-first message history in a KVStore, capped per
// session. Every operation re-reads the stored collection before writing it back.
type MessageStore struct {
	kv    KVStore
	limit int
}

// NewMessageStore creates a store capped at limit messages per session
func NewMessageStore(kv KVStore, limit int) *MessageStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MessageStore{kv: kv, limit: limit}
}

// Limit returns the per-session cap
func (s *MessageStore) Limit() int {
	return s.limit
}

// All returns the whole stored history, newest first
func (s *MessageStore) All(ctx context.Context) ([]Message, error) {
	vals, err := s.kv.Get(ctx, KeyMessages)
	if err != nil {
		return nil, err
	}
	return ParseMessages(vals[KeyMessages])
}

// SessionMessages returns one session's history, newest first
func (s *MessageStore) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return filterSession(all, sessionID), nil
}

// Append stores msg at the head of the history unless the newest message of the
// same session already has the same text and direction. It reports whether
// anything was written.
func (s *MessageStore) Append(ctx context.Context, msg Message) (bool, error) {
	messages, err := s.All(ctx)
	if err != nil {
		return false, err
	}

	for _, m := range messages {
		if m.SessionID != msg.SessionID {
			continue
		}
		if m.sameContent(msg) {
			return false, nil
		}
		break
	}

	updated := make([]Message, 0, len(messages)+1)
	updated = append(updated, msg)
	updated = append(updated, messages...)

	if err := s.write(ctx, CapPerSession(updated, s.limit)); err != nil {
		return false, err
	}
	return true, nil
}

// BulkSeed replaces a session's history with newestFirst, leaving other
// sessions untouched, then re-applies the cap.
func (s *MessageStore) BulkSeed(ctx context.Context, sessionID string, newestFirst []Message) error {
	messages, err := s.All(ctx)
	if err != nil {
		return err
	}

	updated := make([]Message, 0, len(newestFirst)+len(messages))
	updated = append(updated, newestFirst...)
	for _, m := range messages {
		if m.SessionID != sessionID {
			updated = append(updated, m)
		}
	}

	return s.write(ctx, CapPerSession(updated, s.limit))
}

// Replace overwrites the whole history
func (s *MessageStore) Replace(ctx context.Context, messages []Message) error {
	return s.write(ctx, CapPerSession(messages, s.limit))
}

// Clear removes every stored message
func (s *MessageStore) Clear(ctx context.Context) error {
	return s.write(ctx, []Message{})
}

func (s *MessageStore) write(ctx context.Context, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	return s.kv.Set(ctx, map[string]any{KeyMessages: messages})
}

// CapPerSession keeps at most limit messages per session, preserving order.
// Messages without a session share the "unknown" bucket.
func CapPerSession(messages []Message, limit int) []Message {
	kept := make([]Message, 0, len(messages))
	counts := make(map[string]int)
	for _, m := range messages {
		sid := m.SessionID
		if sid == "" {
			sid = "unknown"
		}
		if counts[sid] < limit {
			kept = append(kept, m)
			counts[sid]++
		}
	}
	return kept
}

// HasIncoming reports whether any message in the slice is incoming
func HasIncoming(messages []Message) bool {
	for _, m := range messages {
		if m.IsIncoming() {
			return true
		}
	}
	return false
}

func filterSession(messages []Message, sessionID string) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}
