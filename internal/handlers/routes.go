package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
	"zoneroute/pkg/utils"
)

// GetRoute returns the clients in every zone held by the worker, ordered by id
// GET /routes/{workerId}
func GetRoute(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worker := chi.URLParam(r, "workerId")
		log.Debug().Str("worker", worker).Msg("📥 REQUEST: GET /routes/{workerId}")

		workers, err := store.Workers(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("❌ Error fetching workers")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch route")
			return
		}
		if !models.IsKnownWorker(workers, worker) {
			utils.RespondError(w, http.StatusNotFound, "Worker not found")
			return
		}

		clients, err := store.RouteClients(r.Context(), worker)
		if err != nil {
			log.Error().Err(err).Str("worker", worker).Msg("❌ Error fetching route")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch route")
			return
		}

		log.Debug().Str("worker", worker).Int("stops", len(clients)).Msg("✅ Route loaded")
		utils.RespondJSON(w, http.StatusOK, clients)
	}
}
