package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Response statuses carried in every mutation reply
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusConflict = "conflict"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("❌ Failed to encode response")
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondStatus(w, status, StatusError, message)
}

// RespondConflict reports a stale version precondition
func RespondConflict(w http.ResponseWriter, message string) {
	RespondStatus(w, http.StatusConflict, StatusConflict, message)
}

// RespondStatus sends {status, message} with the given HTTP code
func RespondStatus(w http.ResponseWriter, code int, status, message string) {
	RespondJSON(w, code, map[string]interface{}{
		"status":  status,
		"message": message,
	})
}
