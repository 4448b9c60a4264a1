package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
	"zoneroute/pkg/utils"
)

// GetClients returns all clients ordered by id
func GetClients(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Msg("📥 REQUEST: GET /clients")

		clients, err := store.Clients(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("❌ Error fetching clients")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch clients")
			return
		}

		utils.RespondJSON(w, http.StatusOK, clients)
	}
}

// GetClient returns one client
func GetClient(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := clientID(w, r)
		if !ok {
			return
		}

		client, err := store.GetClient(r.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}
		if err != nil {
			log.Error().Err(err).Int("client_id", id).Msg("❌ Error fetching client")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch client")
			return
		}

		utils.RespondJSON(w, http.StatusOK, client)
	}
}

// UpdateClient applies a partial update limited to the editable fields
// PUT /clients/{id} {instructions?, photoUrl?, version?}
func UpdateClient(store database.Store, hub Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := clientID(w, r)
		if !ok {
			return
		}
		log.Info().Int("client_id", id).Msg("📥 REQUEST: PUT /clients/{id}")

		var raw map[string]json.RawMessage
		if err := decodeJSON(r, &raw); err != nil {
			log.Warn().Err(err).Msg("❌ Invalid request body")
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		for key := range raw {
			if key != "version" && !isEditableField(key) {
				log.Warn().Str("field", key).Msg("❌ Field is not editable")
				utils.RespondError(w, http.StatusBadRequest, "Field is not editable: "+key)
				return
			}
		}

		var patch models.ClientPatch
		if err := remarshal(raw, &patch); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid field value")
			return
		}
		if patch.IsEmpty() {
			utils.RespondError(w, http.StatusBadRequest, "No editable fields in request")
			return
		}

		client, err := store.UpdateClient(r.Context(), id, patch)
		switch {
		case errors.Is(err, database.ErrNotFound):
			utils.RespondError(w, http.StatusNotFound, "Client not found")
			return
		case errors.Is(err, database.ErrVersionConflict):
			log.Warn().Int("client_id", id).Msg("⚠️  Stale client version")
			utils.RespondConflict(w, "Client was changed by someone else; reload and retry")
			return
		case errors.Is(err, database.ErrInvalidField):
			utils.RespondError(w, http.StatusBadRequest, "No editable fields in request")
			return
		case err != nil:
			log.Error().Err(err).Int("client_id", id).Msg("❌ Failed to update client")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update client")
			return
		}

		log.Info().Int("client_id", id).Int64("version", client.Version).Msg("✅ Client updated")

		hub.Publish(models.Event{Type: models.EventClientUpdated, Client: client},
			zoneOwners(r.Context(), store, client.Zone)...)

		utils.RespondJSON(w, http.StatusOK, models.UpdateClientResponse{
			Status: utils.StatusOK,
			Client: client,
		})
	}
}

func isEditableField(name string) bool {
	for _, f := range models.EditableClientFields {
		if f == name {
			return true
		}
	}
	return false
}

func remarshal(raw map[string]json.RawMessage, out interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// clientID parses {id}; it writes a 400 and returns false when malformed
func clientID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid client id")
		return 0, false
	}
	return id, true
}
