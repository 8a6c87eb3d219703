package internal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanBase = time.Date(2024, 4, 3, 10, 0, 0, 0, time.Local)

func timedBubble(minute int, text string, dir Direction) TestBubble {
	return TestBubble{
		Text:       text,
		Direction:  dir,
		Annotation: Annotation(scanBase.Add(time.Duration(minute)*time.Minute), "Alice"),
	}
}

func scanChat(t *testing.T, chat TestChat, store *MessageStore) (*ScanResult, error) {
	t.Helper()
	page := pageAt(t, chat, "https://web.whatsapp.com/")
	classifier := NewBubbleClassifier(WhatsAppProfile())
	info := NewSessionTracker(WhatsAppProfile()).Current(page)
	return NewContextScanner(classifier, store).Scan(context.Background(), page, info)
}

func TestScanSeedsNewestWindow(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore(NewMemoryStore(), 5)

	var bubbles []TestBubble
	for i := 1; i <= 6; i++ {
		bubbles = append(bubbles, timedBubble(i, fmt.Sprintf("message %d", i), DirectionOutgoing))
	}
	bubbles = append(bubbles, timedBubble(7, "message 7", DirectionIncoming))

	res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: bubbles}, store)
	require.NoError(t, err)

	assert.Equal(t, "Alice::local", res.Session.SessionID)
	assert.Len(t, res.Existing, 7)
	assert.Equal(t, 7, res.Total)
	require.Len(t, res.Window, 5)
	assert.Equal(t, "message 3", res.Window[0].Text)
	assert.Equal(t, "message 7", res.Window[4].Text)
	assert.Equal(t, OutcomeSuggest, res.Outcome)

	stored, err := store.SessionMessages(ctx, "Alice::local")
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Equal(t, "message 7", stored[0].Text, "stored newest first")
	assert.Equal(t, "message 3", stored[4].Text)
	assert.Equal(t, scanBase.Add(7*time.Minute).UnixMilli(), stored[0].Timestamp)
	assert.Equal(t, "Alice", stored[0].ChatTitle)
	assert.Equal(t, "whatsapp", stored[0].Platform)
}

func TestScanAlternatingHour(t *testing.T) {
	tests := []struct {
		name string
		row  bool
	}{
		{name: "bare bubbles"},
		{name: "row wrapped", row: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMessageStore(NewMemoryStore(), 5)

			var bubbles []TestBubble
			for i := 0; i < 7; i++ {
				dir := DirectionIncoming
				if i%2 == 1 {
					dir = DirectionOutgoing
				}
				b := timedBubble(i*10, fmt.Sprintf("msg %d", i+1), dir)
				b.Row = tt.row
				bubbles = append(bubbles, b)
			}

			res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: bubbles}, store)
			require.NoError(t, err)

			assert.Equal(t, 7, res.Total)
			assert.Len(t, res.Existing, 7)
			assert.Len(t, res.RecentKeys, 7)
			assert.Equal(t, OutcomeSuggest, res.Outcome)
			require.Len(t, res.Window, 5)
			for i, m := range res.Window {
				n := i + 3
				assert.Equal(t, fmt.Sprintf("msg %d", n), m.Text)
				assert.Equal(t, scanBase.Add(time.Duration((n-1)*10)*time.Minute).UnixMilli(), m.Timestamp)
				want := DirectionIncoming
				if n%2 == 0 {
					want = DirectionOutgoing
				}
				assert.Equal(t, want, m.Direction, m.Text)
			}

			stored, err := store.SessionMessages(context.Background(), "Alice::local")
			require.NoError(t, err)
			require.Len(t, stored, 5)
			assert.Equal(t, "msg 7", stored[0].Text)
			assert.True(t, stored[0].IsIncoming())
		})
	}
}

func TestScanUndatedRowTakesInnerDirection(t *testing.T) {
	store := NewMessageStore(NewMemoryStore(), 5)
	res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: []TestBubble{
		{Text: "no stamp", Direction: DirectionOutgoing, Row: true},
	}}, store)
	require.NoError(t, err)

	require.Len(t, res.Window, 1)
	assert.Equal(t, DirectionOutgoing, res.Window[0].Direction)
	assert.Equal(t, OutcomeWaiting, res.Outcome)
}

func TestScanOrdersByTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore(NewMemoryStore(), 5)

	_, err := scanChat(t, TestChat{Title: "Alice", Bubbles: []TestBubble{
		timedBubble(2, "second", DirectionIncoming),
		timedBubble(1, "first", DirectionIncoming),
		timedBubble(3, "third", DirectionIncoming),
	}}, store)
	require.NoError(t, err)

	stored, err := store.SessionMessages(ctx, "Alice::local")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{stored[0].Text, stored[1].Text, stored[2].Text})
}

func TestScanOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		bubbles []TestBubble
		want    ScanOutcome
	}{
		{
			name: "only outgoing",
			bubbles: []TestBubble{
				timedBubble(1, "hey", DirectionOutgoing),
				timedBubble(2, "you there?", DirectionOutgoing),
			},
			want: OutcomeWaiting,
		},
		{
			name: "last is outgoing",
			bubbles: []TestBubble{
				timedBubble(1, "question", DirectionIncoming),
				timedBubble(2, "answer", DirectionOutgoing),
			},
			want: OutcomeNone,
		},
		{
			name:    "empty conversation",
			bubbles: nil,
			want:    OutcomeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: tt.bubbles}, NewMessageStore(NewMemoryStore(), 5))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
		})
	}
}

func TestScanUndatedBubblesKeepDocumentOrder(t *testing.T) {
	store := NewMessageStore(NewMemoryStore(), 5)
	res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: []TestBubble{
		{Text: "undated first", Direction: DirectionIncoming},
		timedBubble(1, "dated", DirectionIncoming),
		{Text: "undated last", Direction: DirectionIncoming},
	}}, store)
	require.NoError(t, err)

	require.Len(t, res.Window, 3)
	assert.Equal(t, "dated", res.Window[0].Text, "undated bubbles sort after real timestamps")
	assert.Equal(t, "undated first", res.Window[1].Text)
	assert.Equal(t, "undated last", res.Window[2].Text)
	assert.GreaterOrEqual(t, res.Window[1].Timestamp, fallbackTimestampBase)
}

func TestScanDropsDuplicatesAndNonMessages(t *testing.T) {
	store := NewMessageStore(NewMemoryStore(), 5)
	res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: []TestBubble{
		timedBubble(1, "same", DirectionIncoming),
		timedBubble(1, "same", DirectionIncoming),
		timedBubble(2, "0:31", DirectionIncoming),
		{Text: "photo", Direction: DirectionIncoming, Media: true},
	}}, store)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.RecentKeys, 1)
}

func TestScanReplyTo(t *testing.T) {
	store := NewMessageStore(NewMemoryStore(), 5)
	b := timedBubble(1, "yes", DirectionIncoming)
	b.Quote = &ReplyTo{Sender: "You", Text: "coffee?"}

	res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: []TestBubble{b}}, store)
	require.NoError(t, err)
	require.Len(t, res.Window, 1)
	assert.Equal(t, &ReplyTo{Sender: "You", Text: "coffee?"}, res.Window[0].ReplyTo)
}

func TestScanContainerNotFound(t *testing.T) {
	_, err := scanChat(t, TestChat{NoContainer: true}, NewMessageStore(NewMemoryStore(), 5))
	assert.ErrorIs(t, err, ErrContainerNotFound)

	scanner := NewContextScanner(NewBubbleClassifier(WhatsAppProfile()), NewMessageStore(NewMemoryStore(), 5))
	_, err = scanner.Scan(context.Background(), nil, SessionInfo{})
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestScanStorageFailureKeepsResult(t *testing.T) {
	kv := NewMemoryStore()
	require.NoError(t, kv.Close())

	res, err := scanChat(t, TestChat{Title: "Alice", Bubbles: []TestBubble{
		timedBubble(1, "hello", DirectionIncoming),
	}}, NewMessageStore(kv, 5))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotNil(t, res)
	assert.Len(t, res.Existing, 1)
}

func TestFindChatContainerFallsBackToMain(t *testing.T) {
	root := mustParse(t, `<html><body><div id="main"><div id="inner"></div></div></body></html>`)
	c := FindChatContainer(root, WhatsAppProfile())
	require.NotNil(t, c)
	assert.Equal(t, "main", c.ID())
	assert.Nil(t, FindChatContainer(nil, WhatsAppProfile()))
}
