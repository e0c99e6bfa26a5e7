package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// session wraps a websocket connection so that broadcasts and responses
// never interleave their writes.
type session struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newSession(id string, conn *websocket.Conn, remoteAddr string) *session {
	return &session{id: id, conn: conn, remoteAddr: remoteAddr}
}

// WriteMessage writes a single frame under the session lock.
func (s *session) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Close closes the connection once.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
