package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"zoneroute/pkg/utils"
)

// DiagnosticLog is a problem report sent by a dashboard
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message" validate:"required"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Source    string                 `json:"source"`
}

// ReceiveDiagnosticLog writes dashboard reports into the server log
// POST /logs/diagnostic
func ReceiveDiagnosticLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry DiagnosticLog
		if err := decodeJSON(r, &entry); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&entry); err != nil {
			utils.RespondError(w, http.StatusBadRequest, validationMessage(err))
			return
		}

		prefix := "📱"
		level := zerolog.InfoLevel
		switch entry.Level {
		case "ERROR":
			prefix, level = "🔴", zerolog.ErrorLevel
		case "WARNING":
			prefix, level = "🟡", zerolog.WarnLevel
		case "INFO":
			prefix = "🔵"
		}

		event := log.WithLevel(level).
			Str("source", entry.Source).
			Str("context", entry.Context).
			Str("timestamp", entry.Timestamp)
		if len(entry.Data) > 0 {
			if data, err := json.Marshal(entry.Data); err == nil {
				event = event.RawJSON("data", data)
			}
		}
		event.Msgf("%s DASHBOARD DIAGNOSTIC: %s", prefix, entry.Message)

		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}
