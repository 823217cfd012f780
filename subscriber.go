package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriber pairs a websocket connection with a write lock so the tick
// broadcast and per-session replies never interleave frames.
type Subscriber struct {
	conn           *websocket.Conn
	mu             sync.Mutex
	lastCommandSeq atomic.Uint64
}

// WriteMessage serializes writes on the connection and applies the shared
// write deadline.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// LastCommandSeq reports the highest acknowledged command sequence.
func (s *Subscriber) LastCommandSeq() uint64 {
	return s.lastCommandSeq.Load()
}

// StoreLastCommandSeq records a newly acknowledged command sequence.
func (s *Subscriber) StoreLastCommandSeq(seq uint64) {
	s.lastCommandSeq.Store(seq)
}

// Close tears down the underlying connection.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}
