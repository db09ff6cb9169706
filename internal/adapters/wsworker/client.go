package wsworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/ports"
)

// LocalSink is the subset of distributor.ChannelSink the remote worker
// process feeds decoded messages into.
type LocalSink interface {
	Send(msg ports.Message) error
}

// Dial connects to a copytrader distributor's WebSocket listener and
// forwards every decoded message into local. It blocks until the
// connection drops, a shutdown frame arrives, or ctx is cancelled —
// mirroring the teacher pack's ws Client.Connect/ReadMessage split, with
// ctx wired in by closing the connection to unblock the read loop.
func Dial(ctx context.Context, url string, local LocalSink) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("wsworker.Dial: %w", err)
	}
	defer conn.Close()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopWatch:
		}
	}()

	for {
		var w wireMessage
		if err := conn.ReadJSON(&w); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wsworker.Dial: read: %w", err)
		}

		msg := ports.Message{Kind: w.Kind}
		if w.Kind == ports.MessageActivity && len(w.Payload) > 0 {
			var qa domain.QueueActivity
			if err := json.Unmarshal(w.Payload, &qa); err != nil {
				slog.Warn("wsworker: decode activity failed, dropping", "err", err)
				continue
			}
			msg.Payload = qa
		}

		if err := local.Send(msg); err != nil {
			slog.Warn("wsworker: local delivery failed", "err", err)
		}

		if w.Kind == ports.MessageShutdown {
			return nil
		}
	}
}
