package handlers

import (
	"net/http"

	"zoneroute/internal/database"
	"zoneroute/pkg/utils"
)

// ClientCounter reports connected websocket subscribers
type ClientCounter interface {
	GetClientCount() int
}

// Health reports store reachability and live subscriber count
func Health(store database.Store, hub ClientCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := store.Workers(r.Context()); err != nil {
			utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":      utils.StatusOK,
			"subscribers": hub.GetClientCount(),
		})
	}
}
