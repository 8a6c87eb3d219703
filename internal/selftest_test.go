package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSelfTest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 3, 12, 0, 0, 0, time.UTC)
	store := NewMessageStore(NewMemoryStore(), DefaultHistoryLimit)

	seeded, err := SeedSelfTest(ctx, store, now)
	require.NoError(t, err)
	require.Len(t, seeded, 5)

	stored, err := store.SessionMessages(ctx, SelfTestSessionID)
	require.NoError(t, err)
	require.Len(t, stored, 5)

	assert.True(t, stored[0].IsIncoming(), "newest is the incoming test message")
	assert.Equal(t, now.UnixMilli(), stored[0].Timestamp)
	for _, m := range stored[1:] {
		assert.Equal(t, DirectionOutgoing, m.Direction)
	}
	for i := 1; i < len(stored); i++ {
		assert.Greater(t, stored[i-1].Timestamp, stored[i].Timestamp)
	}

	current, window := SplitWindow(stored, DefaultHistoryLimit)
	assert.Equal(t, stored[0], current)
	assert.Len(t, window, 4)
	assert.Equal(t, "Hello, seed 1", window[0].Text)
}
