package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
	"zoneroute/pkg/utils"
)

// GetWorkers returns the worker roster
func GetWorkers(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workers, err := store.Workers(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("❌ Error fetching workers")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch workers")
			return
		}
		utils.RespondJSON(w, http.StatusOK, workers)
	}
}

// RegisterDeviceToken stores a push token for the worker
// POST /workers/{workerId}/device-tokens {token, device_type}
func RegisterDeviceToken(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		worker := chi.URLParam(r, "workerId")
		log.Info().Str("worker", worker).Msg("📥 REQUEST: POST /workers/{workerId}/device-tokens")

		var req models.RegisterDeviceTokenRequest
		if err := decodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, validationMessage(err))
			return
		}

		err := store.SaveDeviceToken(r.Context(), models.DeviceToken{
			Worker:     worker,
			Token:      req.Token,
			DeviceType: req.DeviceType,
		})
		if errors.Is(err, database.ErrUnknownWorker) {
			utils.RespondError(w, http.StatusNotFound, "Worker not found")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("worker", worker).Msg("❌ Failed to save device token")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register device token")
			return
		}

		log.Info().Str("worker", worker).Str("device_type", req.DeviceType).Msg("✅ Device token registered")
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": utils.StatusOK})
	}
}
