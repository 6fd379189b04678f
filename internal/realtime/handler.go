// internal/realtime/handler.go
package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/markb/tably/internal/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (CORS handled elsewhere)
	},
}

// HandleWebSocket handles WebSocket upgrade requests. The link itself is
// unauthenticated: customers tracking an order have no account, and
// tenant-scoped rooms check credentials at join time instead.
func (s *Service) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("realtime: upgrade failed", "error", err.Error())
		return
	}

	conn := s.hub.NewConn(ws)
	log.Debug("realtime: new connection", "conn_id", conn.ID())

	go conn.WritePump()
	go conn.ReadPump()
}
