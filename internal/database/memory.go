package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"zoneroute/internal/models"
)

// MemoryStore keeps all state in process. It is used for local development
// and tests; contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	workers []string
	zones   map[string]*models.Zone
	clients map[int]*models.Client
	photos  map[int][]models.PhotoLog
	tokens  map[string]models.DeviceToken
	seq     int64
	now     func() time.Time
}

// NewMemoryStore builds a store from seed data.
func NewMemoryStore(seed *SeedData) (*MemoryStore, error) {
	zones, err := seed.ZoneRecords()
	if err != nil {
		return nil, err
	}

	s := &MemoryStore{
		workers: append([]string(nil), seed.Workers...),
		zones:   make(map[string]*models.Zone, len(zones)),
		clients: make(map[int]*models.Client),
		photos:  make(map[int][]models.PhotoLog),
		tokens:  make(map[string]models.DeviceToken),
		now:     time.Now,
	}
	for i := range zones {
		z := zones[i]
		s.zones[z.Name] = &z
	}
	for _, c := range seed.ClientRecords() {
		c := c
		s.clients[c.ID] = &c
	}
	return s, nil
}

func (s *MemoryStore) Workers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.workers...), nil
}

func (s *MemoryStore) Zones(ctx context.Context) ([]models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zones := make([]models.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		zones = append(zones, copyZone(z))
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
	return zones, nil
}

func (s *MemoryStore) AssignZone(ctx context.Context, name, worker string, expected *int64) (*models.Zone, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zones[name]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !models.IsKnownWorker(s.workers, worker) {
		return nil, nil, ErrUnknownWorker
	}
	if expected != nil && *expected != z.Version {
		return nil, nil, ErrVersionConflict
	}

	previous := z.Worker
	w := worker
	z.Worker = &w
	z.Version++
	out := copyZone(z)
	return &out, previous, nil
}

func (s *MemoryStore) Clients(ctx context.Context) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, copyClient(c))
	}
	sortClients(clients)
	return clients, nil
}

func (s *MemoryStore) GetClient(ctx context.Context, id int) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyClient(c)
	return &out, nil
}

func (s *MemoryStore) UpdateClient(ctx context.Context, id int, patch models.ClientPatch) (*models.Client, error) {
	if patch.IsEmpty() {
		return nil, ErrInvalidField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Version != nil && *patch.Version != c.Version {
		return nil, ErrVersionConflict
	}

	patch.Apply(c)
	c.FirstService = false
	c.Version++
	c.UpdatedAt = s.now().Unix()
	out := copyClient(c)
	return &out, nil
}

func (s *MemoryStore) RouteClients(ctx context.Context, worker string) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := []models.Client{}
	for _, c := range s.clients {
		z, ok := s.zones[c.Zone]
		if !ok || !z.AssignedTo(worker) {
			continue
		}
		clients = append(clients, copyClient(c))
	}
	sortClients(clients)
	return clients, nil
}

func (s *MemoryStore) PhotoLogs(ctx context.Context, clientID int) ([]models.PhotoLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.clients[clientID]; !ok {
		return nil, ErrNotFound
	}
	return append([]models.PhotoLog{}, s.photos[clientID]...), nil
}

func (s *MemoryStore) AppendPhotoLog(ctx context.Context, entry models.PhotoLog, expected *int64) (*models.PhotoLog, *models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[entry.ClientID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if expected != nil && *expected != c.Version {
		return nil, nil, ErrVersionConflict
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.seq++
	entry.Seq = s.seq
	s.photos[entry.ClientID] = append(s.photos[entry.ClientID], entry)

	url := entry.URL
	c.PhotoURL = &url
	c.Version++
	c.UpdatedAt = s.now().Unix()

	out := copyClient(c)
	return &entry, &out, nil
}

func (s *MemoryStore) SaveDeviceToken(ctx context.Context, token models.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !models.IsKnownWorker(s.workers, token.Worker) {
		return ErrUnknownWorker
	}

	now := s.now().Unix()
	if existing, ok := s.tokens[token.Token]; ok {
		token.ID = existing.ID
		token.CreatedAt = existing.CreatedAt
	} else {
		token.ID = len(s.tokens) + 1
		token.CreatedAt = now
	}
	token.UpdatedAt = now
	s.tokens[token.Token] = token
	return nil
}

func (s *MemoryStore) DeviceTokens(ctx context.Context, worker string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens []string
	for _, t := range s.tokens {
		if t.Worker == worker {
			tokens = append(tokens, t.Token)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (s *MemoryStore) Close() error { return nil }

func copyZone(z *models.Zone) models.Zone {
	out := *z
	if z.Worker != nil {
		w := *z.Worker
		out.Worker = &w
	}
	return out
}

func copyClient(c *models.Client) models.Client {
	out := *c
	if c.PhotoURL != nil {
		url := *c.PhotoURL
		out.PhotoURL = &url
	}
	return out
}

func sortClients(clients []models.Client) {
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
}
