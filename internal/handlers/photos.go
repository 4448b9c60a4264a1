package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
	"zoneroute/pkg/utils"
)

// GetPhotoLogs returns a client's photo history, oldest first
func GetPhotoLogs(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := clientID(w, r)
		if !ok {
			return
		}

		logs, err := store.PhotoLogs(r.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}
		if err != nil {
			log.Error().Err(err).Int("client_id", id).Msg("❌ Error fetching photo logs")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch photo logs")
			return
		}

		utils.RespondJSON(w, http.StatusOK, logs)
	}
}

// AppendPhotoLog records a completed photo action and makes it the client's current photo
// POST /clients/{id}/photos {timestamp, url, worker?, version?}
func AppendPhotoLog(store database.Store, hub Publisher, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := clientID(w, r)
		if !ok {
			return
		}
		log.Info().Int("client_id", id).Msg("📥 REQUEST: POST /clients/{id}/photos")

		if maxBytes > 0 {
			// data URIs are base64, about 4/3 of the image size
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes*4/3+4096)
		}

		var req models.AppendPhotoRequest
		if err := decodeJSON(r, &req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondError(w, http.StatusRequestEntityTooLarge, "Photo is too large")
				return
			}
			log.Warn().Err(err).Msg("❌ Invalid request body")
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validateRequest(r.Context(), store, &req); err != nil {
			if !isValidationError(err) {
				log.Error().Err(err).Msg("❌ Failed to validate photo log")
				utils.RespondError(w, http.StatusInternalServerError, "Failed to validate request")
				return
			}
			utils.RespondError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "timestamp must be RFC3339")
			return
		}

		entry, client, err := store.AppendPhotoLog(r.Context(), models.PhotoLog{
			ClientID:  id,
			Worker:    req.Worker,
			Timestamp: req.Timestamp,
			URL:       req.URL,
		}, req.Version)
		switch {
		case errors.Is(err, database.ErrNotFound):
			utils.RespondError(w, http.StatusNotFound, "Client not found")
			return
		case errors.Is(err, database.ErrVersionConflict):
			log.Warn().Int("client_id", id).Msg("⚠️  Stale client version")
			utils.RespondConflict(w, "Client was changed by someone else; reload and retry")
			return
		case err != nil:
			log.Error().Err(err).Int("client_id", id).Msg("❌ Failed to append photo log")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save photo")
			return
		}

		log.Info().
			Int("client_id", id).
			Str("worker", req.Worker).
			Str("entry_id", entry.ID).
			Int64("version", client.Version).
			Msg("📸 Photo logged")

		owners := zoneOwners(r.Context(), store, client.Zone)
		hub.Publish(models.Event{Type: models.EventPhotoLogged, Client: client, Photo: entry}, owners...)

		utils.RespondJSON(w, http.StatusOK, models.AppendPhotoResponse{
			Status:  utils.StatusOK,
			Entry:   entry,
			Version: client.Version,
		})
	}
}
