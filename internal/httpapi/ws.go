package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/meridiancode/meridian/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

type inboundMessage struct {
	Type string `json:"type"`
}

func websocketHandler(hub *broadcast.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("httpapi: websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, outbox := hub.Subscribe()
		defer hub.Unsubscribe(id)

		if err := conn.WriteJSON(hub.Snapshot()); err != nil {
			slog.Warn("httpapi: failed to send initial snapshot", "subscriber", id, "error", err)
			return
		}

		done := make(chan struct{})
		go readLoop(conn, hub, done)

		for {
			select {
			case msg, ok := <-outbox:
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					slog.Warn("httpapi: websocket write failed", "subscriber", id, "error", err)
					return
				}
			case <-done:
				return
			}
		}
	}
}

// readLoop drains inbound client frames. Unknown message types are logged
// and ignored; ping is answered with pong directly since it doesn't touch
// hub state.
func readLoop(conn *websocket.Conn, hub *broadcast.Hub, done chan<- struct{}) {
	defer close(done)
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "ping":
			if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
				return
			}
		case "request_full_graph":
			if err := conn.WriteJSON(hub.Snapshot()); err != nil {
				return
			}
		case "subscribe", "unsubscribe", "diff_ack":
			// Every connection is already subscribed to the full diff
			// stream from upgrade onward; nothing further to do.
		default:
			slog.Warn("httpapi: unknown websocket message type", "type", msg.Type)
		}
	}
}
