package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iksnae/msghelp/internal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultPath is where the relay websocket is served
const DefaultPath = "/relay"

// Engine is the part of the capture engine the bridge drives
type Engine interface {
	Observe(ctx context.Context, page *internal.Page, added []internal.Node) error
	Do(ctx context.Context, cmd internal.Command) (internal.CommandResult, error)
}

// Server accepts relay connections, feeds page updates and commands to the
// engine and pushes notifier signals back to every relay.
type Server struct {
	engine   Engine
	pool     *ConnectionPool
	upgrader websocket.Upgrader
	path     string
}

// NewServer serves the relay websocket at path
func NewServer(engine Engine, path string) *Server {
	if path == "" {
		path = DefaultPath
	}
	return &Server{
		engine: engine,
		pool:   NewConnectionPool(),
		path:   path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 14,
			WriteBufferSize: 1 << 14,
			// the relay runs inside the chat page, whose origin is not ours
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Attach sets the engine. It must be called before serving; the engine is
// usually built with this server's Notifier, so it cannot exist at NewServer.
func (s *Server) Attach(engine Engine) {
	s.engine = engine
}

// Pool exposes the live relay connections
func (s *Server) Pool() *ConnectionPool {
	return s.pool
}

// Handler returns the HTTP handler for the relay endpoint and /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "connections": s.pool.Count()})
	})
	return mux
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("path", s.path).Msg("relay bridge listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "relay bridge failed")
	case <-ctx.Done():
		s.pool.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("relay upgrade failed")
		return
	}
	s.pool.Add(conn)
	log.Info().Str("remote", r.RemoteAddr).Int("connections", s.pool.Count()).Msg("relay connected")
	defer func() {
		s.pool.Remove(conn)
		log.Info().Str("remote", r.RemoteAddr).Msg("relay disconnected")
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("relay read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.respond(conn, "", TypeError, AckPayload{Error: "malformed envelope"})
			continue
		}
		s.handle(ctx, conn, env)
	}
}

func (s *Server) handle(ctx context.Context, conn *websocket.Conn, env Envelope) {
	log.Debug().Str("id", env.ID).Str("type", env.Type).Msg("relay message")

	switch env.Type {
	case TypePageUpdate:
		var update PageUpdate
		if err := env.Decode(&update); err != nil {
			s.respond(conn, env.ID, TypeError, AckPayload{Error: err.Error()})
			return
		}
		if err := s.observe(ctx, update); err != nil {
			log.Warn().Err(err).Str("url", update.URL).Msg("page update rejected")
			s.respond(conn, env.ID, TypeError, AckPayload{Error: err.Error()})
			return
		}
		s.respond(conn, env.ID, TypeAck, AckPayload{OK: true})

	case string(internal.CmdRequestSuggestion), string(internal.CmdShowSuggestions),
		string(internal.CmdResetState), string(internal.CmdScanNow), string(internal.CmdGetDebugInfo):
		var cmd internal.Command
		if err := env.Decode(&cmd); err != nil {
			s.respond(conn, env.ID, TypeError, AckPayload{Error: err.Error()})
			return
		}
		cmd.Type = internal.CommandType(env.Type)
		res, err := s.engine.Do(ctx, cmd)
		if err != nil {
			s.respond(conn, env.ID, TypeError, AckPayload{Error: err.Error()})
			return
		}
		s.respond(conn, env.ID, env.Type, res)

	default:
		s.respond(conn, env.ID, TypeError, AckPayload{Error: "unknown message type " + env.Type})
	}
}

func (s *Server) observe(ctx context.Context, update PageUpdate) error {
	page, added, err := internal.ParsePage(strings.NewReader(update.HTML), update.URL)
	if err != nil {
		return err
	}
	return s.engine.Observe(ctx, page, added)
}

func (s *Server) respond(conn *websocket.Conn, id, typ string, payload any) {
	env, err := reply(id, typ, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build relay reply")
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode relay reply")
		return
	}
	s.pool.SendToOne(conn, data)
}

// Broadcast sends a new envelope to every relay
func (s *Server) Broadcast(typ string, payload any) error {
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "failed to encode envelope")
	}
	s.pool.Broadcast(data)
	return nil
}
