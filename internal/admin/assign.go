package admin

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/dispatch"
	"zoneroute/internal/models"
)

// Assigner is the assignment controller: it validates a zone assignment
// locally, sends it, and records it in the registry once confirmed.
type Assigner struct {
	zones  *ZoneRegistry
	sender dispatch.Sender

	mu      sync.RWMutex
	workers []string
}

func NewAssigner(zones *ZoneRegistry, sender dispatch.Sender, workers []string) *Assigner {
	a := &Assigner{zones: zones, sender: sender}
	a.SetWorkers(workers)
	return a
}

// SetWorkers replaces the roster; an empty roster falls back to DefaultWorkers.
func (a *Assigner) SetWorkers(workers []string) {
	if len(workers) == 0 {
		workers = models.DefaultWorkers
	}
	roster := make([]string, len(workers))
	copy(roster, workers)

	a.mu.Lock()
	a.workers = roster
	a.mu.Unlock()
}

// Workers returns the roster assignments are validated against.
func (a *Assigner) Workers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.workers))
	copy(out, a.workers)
	return out
}

// AssignZone assigns zoneName to worker. Precondition failures return an
// error and send nothing; otherwise the dispatcher result is returned and the
// registry only changes when it is OK.
func (a *Assigner) AssignZone(ctx context.Context, zoneName, worker string) (dispatch.Result, error) {
	zone, ok := a.zones.Get(zoneName)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("%w: %q", ErrUnknownZone, zoneName)
	}
	if !models.IsKnownWorker(a.Workers(), worker) {
		return dispatch.Result{}, fmt.Errorf("%w: %q", ErrUnknownWorker, worker)
	}

	res := a.sender.Send(ctx, dispatch.AssignZone{
		Zone:    zoneName,
		Worker:  worker,
		Version: zone.Version,
	})
	if !res.OK() {
		return res, nil
	}

	a.zones.setWorker(zoneName, worker, res.Version)
	log.Info().Str("zone", zoneName).Str("worker", worker).Msg("🗺️  Zone assigned")
	return res, nil
}
