package wsworker

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades incoming HTTP connections to WebSocket and hands each
// new connection to onConnect as a remote worker mailbox. It never
// blocks: each connection gets its own read loop (discarding inbound
// frames — workers are send-only peers from the distributor's side)
// whose only job is noticing disconnects and calling onClose.
func Handler(onConnect func(*Sink), onClose func(id string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("wsworker: upgrade failed", "err", err)
			return
		}

		id := uuid.NewString()
		sink := NewSink(id, conn)
		onConnect(sink)

		go func() {
			defer func() {
				sink.Close()
				onClose(id)
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
