// Package distributor implements the activity distributor and worker
// pool registry (spec §4.2, C2/C3): round-robin routing of accepted
// activities to registered workers, with an unbounded FIFO backlog when
// no worker is registered.
package distributor

import (
	"fmt"

	"github.com/polymirror/copytrader/internal/ports"
)

// ChannelSink is the in-process WorkerSink implementation: a worker's
// local queue expressed as a buffered Go channel, per spec §5 ("in-process
// channel ends").
type ChannelSink struct {
	id     string
	ch     chan ports.Message
	closed chan struct{}
}

// NewChannelSink creates a sink with the given buffer size for the
// worker's local queue.
func NewChannelSink(id string, buffer int) *ChannelSink {
	return &ChannelSink{
		id:     id,
		ch:     make(chan ports.Message, buffer),
		closed: make(chan struct{}),
	}
}

func (s *ChannelSink) ID() string { return s.id }

// Send enqueues a message without blocking on worker acknowledgement
// (spec §4.2). It still blocks if the buffered channel is full, which is
// the transport's own flow control — the distributor/backlog above it
// stays unbounded per spec.
func (s *ChannelSink) Send(msg ports.Message) error {
	select {
	case <-s.closed:
		return fmt.Errorf("distributor: sink %s is closed", s.id)
	default:
	}
	s.ch <- msg
	return nil
}

func (s *ChannelSink) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
		close(s.closed)
	}
	return nil
}

// Messages exposes the receive end for the worker's dequeue loop.
func (s *ChannelSink) Messages() <-chan ports.Message { return s.ch }
