// Package admin holds the admin dashboard state: the zone registry, the
// client directory and the controllers that change them.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"zoneroute/internal/models"
)

var (
	ErrUnknownZone   = errors.New("admin: unknown zone")
	ErrUnknownWorker = errors.New("admin: unknown worker")
)

// ZoneSource loads zones from the server.
type ZoneSource interface {
	Zones(ctx context.Context) ([]models.Zone, error)
}

// ZoneRegistry caches zone to worker assignments.
type ZoneRegistry struct {
	source ZoneSource

	mu    sync.RWMutex
	zones map[string]models.Zone
}

func NewZoneRegistry(source ZoneSource) *ZoneRegistry {
	return &ZoneRegistry{
		source: source,
		zones:  make(map[string]models.Zone),
	}
}

// Load replaces the cache with the server's zones.
func (r *ZoneRegistry) Load(ctx context.Context) error {
	zones, err := r.source.Zones(ctx)
	if err != nil {
		return fmt.Errorf("admin: load zones: %w", err)
	}

	next := make(map[string]models.Zone, len(zones))
	for _, z := range zones {
		next[z.Name] = z
	}

	r.mu.Lock()
	r.zones = next
	r.mu.Unlock()
	return nil
}

// Get returns the cached zone.
func (r *ZoneRegistry) Get(name string) (models.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[name]
	return z, ok
}

// Zones returns all zones sorted by name.
func (r *ZoneRegistry) Zones() []models.Zone {
	r.mu.RLock()
	zones := make([]models.Zone, 0, len(r.zones))
	for _, z := range r.zones {
		zones = append(zones, z)
	}
	r.mu.RUnlock()

	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
	return zones
}

// Assignments returns zone name -> worker ("" when unassigned).
func (r *ZoneRegistry) Assignments() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.zones))
	for name, z := range r.zones {
		if z.Worker != nil {
			out[name] = *z.Worker
		} else {
			out[name] = ""
		}
	}
	return out
}

// Apply stores a server-confirmed zone. Zones only come into the registry
// through Load, and updates older than the cached version are dropped; it
// reports whether the cache changed.
func (r *ZoneRegistry) Apply(z models.Zone) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.zones[z.Name]
	if !ok {
		return false
	}
	if z.Version != 0 && z.Version < cur.Version {
		return false
	}
	if len(z.Geometry) == 0 {
		z.Geometry = cur.Geometry
	}
	r.zones[z.Name] = z
	return true
}

// setWorker records a confirmed assignment.
func (r *ZoneRegistry) setWorker(name, worker string, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	z, ok := r.zones[name]
	if !ok {
		return
	}
	w := worker
	z.Worker = &w
	if version > 0 {
		z.Version = version
	}
	r.zones[name] = z
}
