package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/msghelp/internal"
	"github.com/iksnae/msghelp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// suggestionService answers every request and records which path was hit
type suggestionService struct {
	mu    sync.Mutex
	paths []string
	last  internal.SuggestionRequest
}

func (s *suggestionService) start(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req internal.SuggestionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.last = req
		s.mu.Unlock()

		_ = json.NewEncoder(w).Encode(internal.Suggestion{Suggestion: "- Sure!\n- Sounds good"})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (s *suggestionService) hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func writeEndpointsConfig(t *testing.T, env *cmdEnv, baseURL string) {
	t.Helper()
	testutil.CreateConfigFixture(t, env.dir, fmt.Sprintf(`
suggest:
  reply_endpoint: %s/suggest-reply
  general_endpoint: %s/suggest
`, baseURL, baseURL))
}

func TestSelftestCommand(t *testing.T) {
	env := newCmdEnv(t)

	out, err := env.run(t, "selftest")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 5 message(s) into "+internal.SelfTestSessionID)

	out, err = env.run(t, "history", "show", internal.SelfTestSessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "Incoming test message, please suggest a reply")
}

func TestSelftestCommand_Request(t *testing.T) {
	env := newCmdEnv(t)
	svc := &suggestionService{}
	writeEndpointsConfig(t, env, svc.start(t).URL)

	out, err := env.run(t, "selftest", "--request")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Sure!")
	assert.Contains(t, out, "2. Sounds good")
	assert.Equal(t, []string{"/suggest"}, svc.hits())
}

func TestSuggestCommand(t *testing.T) {
	env := newCmdEnv(t)
	svc := &suggestionService{}
	writeEndpointsConfig(t, env, svc.start(t).URL)
	testutil.CreateSQLiteFixture(t, env.db)

	out, err := env.run(t, "suggest", "Alice::chat-a", "--mode", "reply")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Sure!")
	assert.Equal(t, []string{"/suggest-reply"}, svc.hits())

	svc.mu.Lock()
	last := svc.last
	svc.mu.Unlock()
	assert.Equal(t, "See you at 6", last.CurrentMessage.Text)
	require.Len(t, last.ContextMessages, 1)
	assert.Equal(t, "Dinner tonight?", last.ContextMessages[0].Text)

	// stored mode picks the endpoint when --mode is absent
	_, err = env.run(t, "mode", "reply")
	require.NoError(t, err)
	_, err = env.run(t, "suggest", "Team::chat-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"/suggest-reply", "/suggest-reply"}, svc.hits())
}

func TestSuggestCommand_Errors(t *testing.T) {
	env := newCmdEnv(t)
	testutil.CreateSQLiteFixture(t, env.db)

	_, err := env.run(t, "suggest", "Nobody::x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")

	_, err = env.run(t, "suggest", "Alice::chat-a", "--mode", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestRequestFor_ApplicationError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"empty context"}`))
	}))
	defer ts.Close()

	cfg := internal.NewConfig()
	cfg.Suggest.GeneralEndpoint = ts.URL
	kv, err := internal.NewStore(internal.StoreTypeMemory)
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	ctx := context.Background()
	_, err = internal.SeedSelfTest(ctx, internal.NewMessageStore(kv, 0), time.Now())
	require.NoError(t, err)

	rec := &internal.RecordingNotifier{}
	err = requestFor(ctx, cfg, kv, internal.SelfTestSessionID, "general", rec)

	var se *internal.SuggestionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, 1, rec.Count(internal.EventLoading))
	assert.Equal(t, 1, rec.Count(internal.EventError))
	assert.Zero(t, rec.Count(internal.EventSuggestions))
}

func TestResolveEndpoint(t *testing.T) {
	cfg := internal.NewConfig()
	kv, err := internal.NewStore(internal.StoreTypeMemory)
	require.NoError(t, err)
	ctx := context.Background()

	got, err := resolveEndpoint(ctx, cfg, kv, "")
	require.NoError(t, err)
	assert.Equal(t, cfg.Suggest.GeneralEndpoint, got)

	require.NoError(t, internal.WriteFlag(ctx, kv, internal.KeyMode, true))
	got, err = resolveEndpoint(ctx, cfg, kv, "")
	require.NoError(t, err)
	assert.Equal(t, cfg.Suggest.ReplyEndpoint, got)

	got, err = resolveEndpoint(ctx, cfg, kv, "general")
	require.NoError(t, err)
	assert.Equal(t, cfg.Suggest.GeneralEndpoint, got)
}
