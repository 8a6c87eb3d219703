package bridge

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionPool tracks relay connections and serializes writes to them
type ConnectionPool struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewConnectionPool() *ConnectionPool {
	return &ConnectionPool{conns: map[*websocket.Conn]struct{}{}}
}

func (cp *ConnectionPool) Add(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	cp.mu.Lock()
	cp.conns[conn] = struct{}{}
	cp.mu.Unlock()
}

func (cp *ConnectionPool) Remove(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	cp.mu.Lock()
	delete(cp.conns, conn)
	cp.mu.Unlock()
	_ = conn.Close()
}

// Broadcast writes data to every connection, dropping the ones that fail
func (cp *ConnectionPool) Broadcast(data []byte) {
	if len(data) == 0 {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for conn := range cp.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("component", "bridge").Msg("ws broadcast failed, dropping connection")
			delete(cp.conns, conn)
			_ = conn.Close()
		}
	}
}

// SendToOne writes data to a single pooled connection
func (cp *ConnectionPool) SendToOne(conn *websocket.Conn, data []byte) {
	if conn == nil || len(data) == 0 {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if _, ok := cp.conns[conn]; !ok {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("component", "bridge").Msg("ws send failed, dropping connection")
		delete(cp.conns, conn)
		_ = conn.Close()
	}
}

func (cp *ConnectionPool) Count() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.conns)
}

func (cp *ConnectionPool) CloseAll() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for conn := range cp.conns {
		_ = conn.Close()
		delete(cp.conns, conn)
	}
}
