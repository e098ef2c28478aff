package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to WebSocket
// and runs them as Hub clients.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // front-desk displays connect from arbitrary origins
		})
		if err != nil {
			logger.Warn("websocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(hub, conn)
		client.Run(r.Context())
	}
}
