package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
	"zoneroute/internal/services"
	"zoneroute/pkg/utils"
)

// notifyTimeout bounds the push sent after an assignment
const notifyTimeout = 10 * time.Second

// Publisher fans events out to live dashboards
type Publisher interface {
	Publish(event models.Event, workers ...string)
}

// Broadcaster is a Publisher that also knows which workers are connected
type Broadcaster interface {
	Publisher
	IsWorkerConnected(worker string) bool
}

// GetZones returns every zone keyed by name
func GetZones(store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Msg("📥 REQUEST: GET /zones")

		zones, err := store.Zones(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("❌ Error fetching zones")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch zones")
			return
		}

		response := make(map[string]models.ZoneResponse, len(zones))
		for i := range zones {
			response[zones[i].Name] = zones[i].ToZoneResponse()
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// AssignZone hands a zone to a worker
// POST /assign {zone, worker, version?}
func AssignZone(store database.Store, hub Broadcaster, notifier services.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("📥 REQUEST: POST /assign")

		var req models.AssignZoneRequest
		if err := decodeJSON(r, &req); err != nil {
			log.Warn().Err(err).Msg("❌ Invalid request body")
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validateRequest(r.Context(), store, &req); err != nil {
			if isValidationError(err) {
				log.Warn().Str("zone", req.Zone).Str("worker", req.Worker).Msg("❌ Invalid assignment")
				utils.RespondError(w, http.StatusBadRequest, validationMessage(err))
				return
			}
			log.Error().Err(err).Msg("❌ Failed to validate assignment")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to validate request")
			return
		}

		zone, previous, err := store.AssignZone(r.Context(), req.Zone, req.Worker, req.Version)
		switch {
		case errors.Is(err, database.ErrNotFound):
			log.Warn().Str("zone", req.Zone).Msg("❌ Zone not found")
			utils.RespondError(w, http.StatusNotFound, "Zone not found")
			return
		case errors.Is(err, database.ErrUnknownWorker):
			utils.RespondError(w, http.StatusBadRequest, "Unknown worker")
			return
		case errors.Is(err, database.ErrVersionConflict):
			log.Warn().Str("zone", req.Zone).Msg("⚠️  Stale zone version")
			utils.RespondConflict(w, "Zone was changed by someone else; reload and retry")
			return
		case err != nil:
			log.Error().Err(err).Str("zone", req.Zone).Msg("❌ Failed to assign zone")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to assign zone")
			return
		}

		log.Info().
			Str("zone", zone.Name).
			Str("worker", req.Worker).
			Int64("version", zone.Version).
			Msg("✅ Zone assigned")

		recipients := []string{req.Worker}
		if previous != nil && *previous != req.Worker {
			recipients = append(recipients, *previous)
		}
		hub.Publish(models.Event{
			Type:           models.EventZoneAssigned,
			Zone:           zone,
			PreviousWorker: previous,
		}, recipients...)

		// a connected dashboard already reloads from the event
		if hub.IsWorkerConnected(req.Worker) {
			log.Debug().Str("worker", req.Worker).Msg("📡 Worker is live, skipping push")
		} else {
			go notifyAssignment(store, notifier, *zone, req.Worker)
		}

		utils.RespondJSON(w, http.StatusOK, models.AssignZoneResponse{
			Status:  utils.StatusOK,
			Zone:    zone.Name,
			Worker:  req.Worker,
			Version: zone.Version,
		})
	}
}

// zoneWorker returns the worker currently holding the zone
func zoneWorker(ctx context.Context, store database.Store, name string) *string {
	zones, err := store.Zones(ctx)
	if err != nil {
		return nil
	}
	for i := range zones {
		if zones[i].Name == name {
			return zones[i].Worker
		}
	}
	return nil
}

// zoneOwners lists the worker holding zone, if any, for event routing
func zoneOwners(ctx context.Context, store database.Store, zone string) []string {
	if w := zoneWorker(ctx, store, zone); w != nil {
		return []string{*w}
	}
	return nil
}

func notifyAssignment(store database.Store, notifier services.Notifier, zone models.Zone, worker string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	tokens, err := store.DeviceTokens(ctx, worker)
	if err != nil {
		log.Error().Err(err).Str("worker", worker).Msg("❌ Failed to load device tokens")
		return
	}
	if len(tokens) == 0 {
		return
	}

	clients, err := store.Clients(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to count zone stops")
		return
	}
	stops := 0
	for _, c := range clients {
		if c.Zone == zone.Name {
			stops++
		}
	}

	if err := notifier.NotifyZoneAssigned(ctx, tokens, zone.Name, stops, zone.Version); err != nil {
		log.Error().Err(err).Str("worker", worker).Msg("❌ Failed to send assignment notification")
	}
}
