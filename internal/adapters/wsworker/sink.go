// Package wsworker implements a remote WorkerSink transport over
// WebSocket, as an alternative to the in-process channel ends in
// internal/distributor. Grounded in the teacher pack's websocket client
// (nofendian17-stockbit-haka-haki's websocket.Client): mutex-guarded
// writes, a periodic ping to detect dead peers, one goroutine per
// connection.
package wsworker

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polymirror/copytrader/internal/ports"
)

const pingInterval = 30 * time.Second

// wireMessage is the JSON frame exchanged over the socket.
type wireMessage struct {
	Kind    ports.MessageKind `json:"kind"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// Sink is a ports.WorkerSink backed by one WebSocket connection to a
// remote worker process. The distributor only ever calls Send/Close; a
// Sink never blocks waiting for the remote side to acknowledge (spec
// §4.2, Send is fire-and-forget).
type Sink struct {
	id         string
	conn       *websocket.Conn
	writeMu    sync.Mutex
	closed     chan struct{}
	closeOnce  sync.Once
	pingCancel func()
}

// NewSink wraps an already-upgraded WebSocket connection as a WorkerSink
// identified by id, and starts its keepalive ping loop.
func NewSink(id string, conn *websocket.Conn) *Sink {
	s := &Sink{id: id, conn: conn, closed: make(chan struct{})}
	s.startPing()
	return s
}

func (s *Sink) ID() string { return s.id }

// Send marshals msg.Payload (expected to be a domain.QueueActivity or nil
// for shutdown) and writes it as one WebSocket text frame.
func (s *Sink) Send(msg ports.Message) error {
	select {
	case <-s.closed:
		return fmt.Errorf("wsworker: sink %s is closed", s.id)
	default:
	}

	var payload json.RawMessage
	if msg.Payload != nil {
		b, err := json.Marshal(msg.Payload)
		if err != nil {
			return fmt.Errorf("wsworker: marshal payload: %w", err)
		}
		payload = b
	}

	return s.writeJSON(wireMessage{Kind: msg.Kind, Payload: payload})
}

func (s *Sink) writeJSON(w wireMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(w); err != nil {
		return fmt.Errorf("wsworker: write: %w", err)
	}
	return nil
}

// Close stops the ping loop and closes the underlying connection.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.pingCancel != nil {
			s.pingCancel()
		}
		err = s.conn.Close()
	})
	return err
}

func (s *Sink) startPing() {
	stop := make(chan struct{})
	s.pingCancel = func() {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-s.closed:
				return
			case <-ticker.C:
				s.writeMu.Lock()
				err := s.conn.WriteMessage(websocket.PingMessage, nil)
				s.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}
