package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// suggestServer answers every request with a reply to the current message
func suggestServer(t *testing.T, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req SuggestionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		time.Sleep(delay)
		_ = json.NewEncoder(w).Encode(Suggestion{Suggestion: "re: " + req.CurrentMessage.Text})
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newTestCoordinator(ts *httptest.Server) *SuggestionCoordinator {
	return NewSuggestionCoordinator(
		NewSuggestionClient(fastPolicy(1), ts.Client()),
		CoordinatorConfig{CacheTTL: time.Minute, CacheCapacity: 10, DefaultEndpoint: ts.URL},
	)
}

func TestCoordinatorCoalescesConcurrentRequests(t *testing.T) {
	ts, hits := suggestServer(t, 100*time.Millisecond)
	c := newTestCoordinator(ts)

	current := Message{Text: "lunch?", Direction: DirectionIncoming}
	window := []Message{{Text: "hey", Direction: DirectionOutgoing}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.RequestSuggestion(context.Background(), current, window)
			assert.NoError(t, err)
			assert.Equal(t, "re: lunch?", s.Suggestion)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, c.CacheLen())
}

func TestCoordinatorServesCache(t *testing.T) {
	ts, hits := suggestServer(t, 0)
	c := newTestCoordinator(ts)
	current := Message{Text: "lunch?", Direction: DirectionIncoming}

	first, err := c.RequestSuggestion(context.Background(), current, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.RequestSuggestion(context.Background(), current, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Suggestion, second.Suggestion)
	assert.Equal(t, int32(1), hits.Load())

	// a different context is a different fingerprint
	_, err = c.RequestSuggestion(context.Background(), current, []Message{{Text: "x", Direction: DirectionIncoming}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	// so is a different endpoint
	_, err = c.RequestSuggestion(context.Background(), current, nil, WithEndpoint(ts.URL+"/reply"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())

	c.Reset()
	assert.Zero(t, c.CacheLen())
	_, err = c.RequestSuggestion(context.Background(), current, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}

func TestCoordinatorDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"suggestion":"ok"}`))
	}))
	defer ts.Close()

	c := newTestCoordinator(ts)
	current := Message{Text: "ping", Direction: DirectionIncoming}

	_, err := c.RequestSuggestion(context.Background(), current, nil)
	var se *SuggestionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)

	s, err := c.RequestSuggestion(context.Background(), current, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Suggestion)
}
