package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are enforced by the CORS layer for browsers; terminals send none
		return true
	},
}

// Roster lists the workers allowed to subscribe.
type Roster interface {
	Workers(ctx context.Context) ([]string, error)
}

// HandleWebSocket upgrades HTTP connection to WebSocket.
// Query: role=admin|worker, worker=<name> (required for workers).
func HandleWebSocket(hub *Hub, roster Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		worker := r.URL.Query().Get("worker")

		switch role {
		case RoleAdmin:
			worker = ""
		case RoleWorker:
			workers, err := roster.Workers(r.Context())
			if err != nil {
				log.Error().Err(err).Msg("❌ Failed to load worker roster")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !models.IsKnownWorker(workers, worker) {
				log.Warn().Str("worker", worker).Msg("❌ WebSocket subscribe for unknown worker")
				http.Error(w, "Unknown worker", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "role must be admin or worker", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("❌ WebSocket upgrade failed")
			return
		}

		client := NewClient(role, worker, conn, hub)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
