package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iksnae/msghelp/internal"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu       sync.Mutex
	pages    []*internal.Page
	added    [][]internal.Node
	commands []internal.Command
	result   internal.CommandResult
	err      error
}

func (f *fakeEngine) Observe(_ context.Context, page *internal.Page, added []internal.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	f.added = append(f.added, added)
	return f.err
}

func (f *fakeEngine) Do(_ context.Context, cmd internal.Command) (internal.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.result, f.err
}

func startServer(t *testing.T, engine Engine) (*Server, *websocket.Conn) {
	t.Helper()
	s := NewServer(engine, "")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return s.Pool().Count() == 1 }, time.Second, 10*time.Millisecond)
	return s, conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, env Envelope) Envelope {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
	return readEnvelope(t, conn)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Envelope
	require.NoError(t, conn.ReadJSON(&got))
	return got
}

func TestPageUpdateIsParsedAndObserved(t *testing.T) {
	engine := &fakeEngine{}
	_, conn := startServer(t, engine)

	env, err := NewEnvelope(TypePageUpdate, PageUpdate{
		URL:  "https://web.whatsapp.com/#chat",
		HTML: `<html><body><div id="main"><div data-msghelp-added="1" role="row">hi</div></div></body></html>`,
	})
	require.NoError(t, err)

	got := roundTrip(t, conn, env)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, TypeAck, got.Type)

	var ack AckPayload
	require.NoError(t, got.Decode(&ack))
	assert.True(t, ack.OK)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.pages, 1)
	assert.Equal(t, "chat", engine.pages[0].Fragment())
	require.Len(t, engine.added[0], 1)
	role, _ := engine.added[0][0].Attr("role")
	assert.Equal(t, "row", role)
}

func TestCommandsAreForwardedWithRequestID(t *testing.T) {
	engine := &fakeEngine{result: internal.CommandResult{
		OK:    true,
		Debug: &internal.DebugInfo{CurrentSessionID: "Alice::chat", IsInitialized: true},
	}}
	_, conn := startServer(t, engine)

	env, err := NewEnvelope(string(internal.CmdGetDebugInfo), nil)
	require.NoError(t, err)

	got := roundTrip(t, conn, env)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, string(internal.CmdGetDebugInfo), got.Type)

	var res internal.CommandResult
	require.NoError(t, got.Decode(&res))
	assert.True(t, res.OK)
	require.NotNil(t, res.Debug)
	assert.Equal(t, "Alice::chat", res.Debug.CurrentSessionID)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.commands, 1)
	assert.Equal(t, internal.CmdGetDebugInfo, engine.commands[0].Type)
}

func TestShowSuggestionsCommandCarriesPayload(t *testing.T) {
	engine := &fakeEngine{result: internal.CommandResult{OK: true}}
	_, conn := startServer(t, engine)

	env, err := NewEnvelope(string(internal.CmdShowSuggestions), SuggestionsPayload{Suggestions: []string{"Sure"}})
	require.NoError(t, err)
	_ = roundTrip(t, conn, env)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.commands, 1)
	assert.Equal(t, []string{"Sure"}, engine.commands[0].Suggestions)
}

func TestEngineErrorsAreReported(t *testing.T) {
	engine := &fakeEngine{err: errors.New("engine stopped")}
	_, conn := startServer(t, engine)

	env, err := NewEnvelope(string(internal.CmdScanNow), nil)
	require.NoError(t, err)

	got := roundTrip(t, conn, env)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, TypeError, got.Type)

	var ack AckPayload
	require.NoError(t, got.Decode(&ack))
	assert.False(t, ack.OK)
	assert.Contains(t, ack.Error, "engine stopped")
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	_, conn := startServer(t, &fakeEngine{})

	got := roundTrip(t, conn, Envelope{ID: "x1", Type: "BOGUS"})
	assert.Equal(t, "x1", got.ID)
	assert.Equal(t, TypeError, got.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	got = readEnvelope(t, conn)
	assert.Equal(t, TypeError, got.Type)
	assert.Empty(t, got.ID)
}

func TestNotifierBroadcasts(t *testing.T) {
	s, conn := startServer(t, &fakeEngine{})
	n := s.Notifier()

	n.ShowLoading()
	got := readEnvelope(t, conn)
	assert.Equal(t, TypeShowLoading, got.Type)
	assert.NotEmpty(t, got.ID)

	n.ShowSuggestions([]string{"Yes", "No"})
	got = readEnvelope(t, conn)
	assert.Equal(t, TypeShowSuggestions, got.Type)
	var payload SuggestionsPayload
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, []string{"Yes", "No"}, payload.Suggestions)
	assert.Empty(t, payload.Error)

	n.ShowError(errors.New("network down"))
	got = readEnvelope(t, conn)
	payload = SuggestionsPayload{}
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, "network down", payload.Error)
	assert.Empty(t, payload.Suggestions)

	n.ShowWaiting()
	got = readEnvelope(t, conn)
	assert.Equal(t, TypeShowWaiting, got.Type)
}

func TestEnvelopeJSONShape(t *testing.T) {
	env, err := NewEnvelope(TypeShowWaiting, nil)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "payload")
	assert.Len(t, env.ID, 36)
}
