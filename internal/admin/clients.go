package admin

import (
	"context"
	"fmt"
	"sync"

	"zoneroute/internal/models"
)

// ClientSource loads client records from the server.
type ClientSource interface {
	Clients(ctx context.Context) ([]models.Client, error)
}

// ClientDirectory caches client records in server order.
type ClientDirectory struct {
	source ClientSource

	mu      sync.RWMutex
	clients []models.Client
	index   map[int]int
}

func NewClientDirectory(source ClientSource) *ClientDirectory {
	return &ClientDirectory{
		source: source,
		index:  make(map[int]int),
	}
}

// Load replaces the cache with the server's clients.
func (d *ClientDirectory) Load(ctx context.Context) error {
	clients, err := d.source.Clients(ctx)
	if err != nil {
		return fmt.Errorf("admin: load clients: %w", err)
	}

	index := make(map[int]int, len(clients))
	for i, c := range clients {
		index[c.ID] = i
	}

	d.mu.Lock()
	d.clients = clients
	d.index = index
	d.mu.Unlock()
	return nil
}

// Get returns a copy of the cached client.
func (d *ClientDirectory) Get(id int) (models.Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[id]
	if !ok {
		return models.Client{}, false
	}
	return d.clients[i], true
}

// Clients returns a copy of all clients in server order.
func (d *ClientDirectory) Clients() []models.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Client, len(d.clients))
	copy(out, d.clients)
	return out
}

// Apply stores a server-confirmed client record. Stale versions and unknown
// ids are ignored; clients are never created client-side.
func (d *ClientDirectory) Apply(c models.Client) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[c.ID]
	if !ok {
		return false
	}
	if c.Version != 0 && c.Version < d.clients[i].Version {
		return false
	}
	d.clients[i] = c
	return true
}
