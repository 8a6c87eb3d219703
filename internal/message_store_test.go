package internal

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func msg(session, text string, dir Direction, ts int64) Message {
	return Message{Text: text, Direction: dir, SessionID: session, Timestamp: ts, Platform: "whatsapp"}
}

func TestMessageStoreAppend(t *testing.T) {
	ctx := context.Background()
	s := NewMessageStore(NewMemoryStore(), 3)

	saved, err := s.Append(ctx, msg("a", "one", DirectionIncoming, 1))
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.Append(ctx, msg("a", "one", DirectionIncoming, 2))
	require.NoError(t, err)
	assert.False(t, saved, "same text and direction as newest is a duplicate")

	saved, err = s.Append(ctx, msg("a", "one", DirectionOutgoing, 3))
	require.NoError(t, err)
	assert.True(t, saved, "direction differs")

	saved, err = s.Append(ctx, msg("b", "one", DirectionOutgoing, 4))
	require.NoError(t, err)
	assert.True(t, saved, "other session")

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, msg("a", fmt.Sprintf("m%d", i), DirectionIncoming, int64(10+i)))
		require.NoError(t, err)
	}

	a, err := s.SessionMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Equal(t, "m4", a[0].Text, "newest first")
	assert.Equal(t, "m2", a[2].Text)

	b, err := s.SessionMessages(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestMessageStoreDuplicateOnlyChecksNewest(t *testing.T) {
	ctx := context.Background()
	s := NewMessageStore(NewMemoryStore(), 5)

	for _, m := range []Message{
		msg("a", "hi", DirectionIncoming, 1),
		msg("a", "hello", DirectionOutgoing, 2),
		msg("a", "hi", DirectionIncoming, 3),
	} {
		saved, err := s.Append(ctx, m)
		require.NoError(t, err)
		assert.True(t, saved)
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMessageStoreBulkSeed(t *testing.T) {
	ctx := context.Background()
	s := NewMessageStore(NewMemoryStore(), 2)

	_, err := s.Append(ctx, msg("b", "keep me", DirectionIncoming, 1))
	require.NoError(t, err)
	_, err = s.Append(ctx, msg("a", "old", DirectionIncoming, 1))
	require.NoError(t, err)

	require.NoError(t, s.BulkSeed(ctx, "a", []Message{
		msg("a", "three", DirectionIncoming, 3),
		msg("a", "two", DirectionOutgoing, 2),
		msg("a", "one", DirectionOutgoing, 1),
	}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Text)
	assert.Equal(t, "two", all[1].Text)
	assert.Equal(t, "keep me", all[2].Text)
}

func TestMessageStoreReplaceAndClear(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	s := NewMessageStore(kv, 1)

	require.NoError(t, s.Replace(ctx, []Message{
		msg("a", "1", DirectionIncoming, 2),
		msg("a", "2", DirectionIncoming, 1),
	}))
	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.Clear(ctx))
	vals, err := kv.Get(ctx, KeyMessages)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(vals[KeyMessages]))
}

func TestMessageStoreUnavailable(t *testing.T) {
	kv := NewMemoryStore()
	require.NoError(t, kv.Close())
	s := NewMessageStore(kv, 0)
	assert.Equal(t, DefaultHistoryLimit, s.Limit())

	_, err := s.Append(context.Background(), msg("a", "x", DirectionIncoming, 1))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCapPerSessionUnknownBucket(t *testing.T) {
	in := []Message{
		msg("", "a", DirectionIncoming, 3),
		msg("unknown", "b", DirectionIncoming, 2),
		msg("", "c", DirectionIncoming, 1),
	}
	out := CapPerSession(in, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Text)
	assert.Equal(t, "b", out[1].Text)
}

func TestCapPerSessionProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 6).Draw(t, "limit")
		n := rapid.IntRange(0, 40).Draw(t, "n")
		in := make([]Message, n)
		for i := range in {
			in[i] = msg(rapid.SampledFrom([]string{"a", "b", "c", ""}).Draw(t, "session"), fmt.Sprint(i), DirectionIncoming, int64(i))
		}

		out := CapPerSession(in, limit)

		counts := map[string]int{}
		inCounts := map[string]int{}
		for _, m := range in {
			inCounts[m.SessionID]++
		}
		for _, m := range out {
			counts[m.SessionID]++
		}
		for sid, c := range counts {
			if c > limit {
				t.Fatalf("session %q kept %d > %d", sid, c, limit)
			}
			if want := min(inCounts[sid], limit); sid != "" && c != want {
				t.Fatalf("session %q kept %d, want %d", sid, c, want)
			}
		}

		// order is preserved
		last := -1
		for _, m := range out {
			var idx int
			fmt.Sscan(m.Text, &idx)
			if idx <= last {
				t.Fatalf("order not preserved")
			}
			last = idx
		}
	})
}
