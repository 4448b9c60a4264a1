package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"zoneroute/internal/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	seed, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	s, err := NewMemoryStore(seed)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	return s
}

func int64p(v int64) *int64 { return &v }
func strp(v string) *string { return &v }

func TestDefaultSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	zones, _ := s.Zones(ctx)
	if len(zones) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(zones))
	}
	if zones[2].Name != "Zone 3" || zones[2].Worker != nil {
		t.Fatalf("Zone 3 should start unassigned, got %+v", zones[2])
	}
	if len(zones[0].Geometry) == 0 {
		t.Fatal("expected geometry on Zone 1")
	}

	clients, _ := s.Clients(ctx)
	if len(clients) != 30 {
		t.Fatalf("expected 30 clients, got %d", len(clients))
	}
	for i, c := range clients {
		if c.ID != i {
			t.Fatalf("clients out of order at %d: id %d", i, c.ID)
		}
		if c.Actions != models.ActionsFor(c.TrashBins, c.RecycleBins) {
			t.Fatalf("client %d: actions %d inconsistent with bins", c.ID, c.Actions)
		}
		if !c.FirstService || c.HasPhoto() || c.Instructions != "" {
			t.Fatalf("client %d: unexpected initial state %+v", c.ID, c)
		}
		if c.Lat < 33.59 || c.Lat > 33.61 || c.Lng < -111.93 || c.Lng > -111.91 {
			t.Fatalf("client %d outside service area: %f,%f", c.ID, c.Lat, c.Lng)
		}
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	ca, _ := a.Clients(context.Background())
	cb, _ := b.Clients(context.Background())
	for i := range ca {
		if ca[i].Lat != cb[i].Lat || ca[i].Zone != cb[i].Zone || ca[i].TrashBins != cb[i].TrashBins {
			t.Fatalf("client %d differs between seeds", i)
		}
	}
}

func TestParseSeedNormalizesUnassigned(t *testing.T) {
	seed, err := ParseSeed([]byte(`
workers: [A]
zones:
  - name: North
    worker: unassigned
  - name: South
    worker: ""
clients:
  count: 2
`))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	zones, err := seed.ZoneRecords()
	if err != nil {
		t.Fatalf("ZoneRecords: %v", err)
	}
	for _, z := range zones {
		if z.Worker != nil {
			t.Fatalf("zone %s: expected nil worker, got %q", z.Name, *z.Worker)
		}
	}
}

func TestParseSeedRejectsUnknownWorker(t *testing.T) {
	_, err := ParseSeed([]byte(`
workers: [A]
zones:
  - name: North
    worker: B
`))
	if err == nil {
		t.Fatal("expected error for unknown worker")
	}
}

func TestAssignZone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	z, previous, err := s.AssignZone(ctx, "Zone 3", "Worker 1", int64p(1))
	if err != nil {
		t.Fatalf("AssignZone: %v", err)
	}
	if !z.AssignedTo("Worker 1") || z.Version != 2 {
		t.Fatalf("unexpected zone after assign: %+v", z)
	}
	if previous != nil {
		t.Fatalf("Zone 3 had no worker, got previous %q", *previous)
	}

	if _, _, err := s.AssignZone(ctx, "Zone 3", "Worker 2", int64p(1)); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if _, _, err := s.AssignZone(ctx, "Zone 9", "Worker 2", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.AssignZone(ctx, "Zone 1", "Worker 7", nil); !errors.Is(err, ErrUnknownWorker) {
		t.Fatalf("expected ErrUnknownWorker, got %v", err)
	}

	// Unversioned writes always apply
	z, previous, err = s.AssignZone(ctx, "Zone 3", "Worker 2", nil)
	if err != nil || !z.AssignedTo("Worker 2") || z.Version != 3 {
		t.Fatalf("unversioned assign: zone=%+v err=%v", z, err)
	}
	if previous == nil || *previous != "Worker 1" {
		t.Fatalf("expected previous worker Worker 1, got %v", previous)
	}
}

func TestAssignZoneReportsPreviousWorkerAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type assignment struct {
		worker   string
		previous *string
		version  int64
	}
	const rounds = 50
	results := make(chan assignment, rounds)

	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		worker := "Worker 1"
		if i%2 == 1 {
			worker = "Worker 2"
		}
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			z, previous, err := s.AssignZone(ctx, "Zone 3", worker, nil)
			if err != nil {
				t.Errorf("AssignZone: %v", err)
				return
			}
			results <- assignment{worker: worker, previous: previous, version: z.Version}
		}(worker)
	}
	wg.Wait()
	close(results)

	// Zone 3 starts unassigned at version 1; each write sees the one before it
	byVersion := make(map[int64]assignment, rounds)
	for a := range results {
		byVersion[a.version] = a
	}
	if len(byVersion) != rounds {
		t.Fatalf("expected %d distinct versions, got %d", rounds, len(byVersion))
	}
	var holder *string
	for v := int64(2); v < rounds+2; v++ {
		a, ok := byVersion[v]
		if !ok {
			t.Fatalf("missing version %d", v)
		}
		if (holder == nil) != (a.previous == nil) || (holder != nil && *holder != *a.previous) {
			t.Fatalf("version %d: previous %v, want %v", v, a.previous, holder)
		}
		w := a.worker
		holder = &w
	}
}

func TestUpdateClientClearsFirstService(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.UpdateClient(ctx, 4, models.ClientPatch{Instructions: strp("Gate code 1234"), Version: int64p(1)})
	if err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	if c.Instructions != "Gate code 1234" || c.FirstService || c.Version != 2 {
		t.Fatalf("unexpected client after update: %+v", c)
	}

	if _, err := s.UpdateClient(ctx, 4, models.ClientPatch{Instructions: strp("x"), Version: int64p(1)}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if _, err := s.UpdateClient(ctx, 99, models.ClientPatch{Instructions: strp("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateClient(ctx, 4, models.ClientPatch{}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}

	got, _ := s.GetClient(ctx, 4)
	if got.Instructions != "Gate code 1234" {
		t.Fatalf("stale write changed the client: %+v", got)
	}
}

func TestAppendPhotoLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, c, err := s.AppendPhotoLog(ctx, models.PhotoLog{ClientID: 2, Timestamp: "2026-01-01T10:00:00Z", URL: "data:image/png;base64,AAA"}, nil)
	if err != nil {
		t.Fatalf("AppendPhotoLog: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}
	if c.PhotoURL == nil || *c.PhotoURL != "data:image/png;base64,AAA" || c.Version != 2 {
		t.Fatalf("unexpected client after append: %+v", c)
	}

	if _, _, err := s.AppendPhotoLog(ctx, models.PhotoLog{ClientID: 2, Timestamp: "2026-01-01T10:05:00Z", URL: "data:image/png;base64,BBB"}, int64p(2)); err != nil {
		t.Fatalf("second AppendPhotoLog: %v", err)
	}
	if _, _, err := s.AppendPhotoLog(ctx, models.PhotoLog{ClientID: 2, URL: "x"}, int64p(2)); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	logs, _ := s.PhotoLogs(ctx, 2)
	if len(logs) != 2 {
		t.Fatalf("expected 2 photo logs, got %d", len(logs))
	}
	if logs[0].URL != "data:image/png;base64,AAA" || logs[1].URL != "data:image/png;base64,BBB" {
		t.Fatalf("photo logs out of order: %+v", logs)
	}

	got, _ := s.GetClient(ctx, 2)
	if *got.PhotoURL != "data:image/png;base64,BBB" {
		t.Fatalf("expected latest photo on client, got %q", *got.PhotoURL)
	}

	if _, err := s.PhotoLogs(ctx, 500); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteClients(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	route, _ := s.RouteClients(ctx, "Worker 1")
	for i, c := range route {
		if c.Zone != "Zone 1" {
			t.Fatalf("Worker 1 route contains client from %s", c.Zone)
		}
		if i > 0 && route[i-1].ID >= c.ID {
			t.Fatal("route not ordered by id")
		}
	}

	before, _ := s.RouteClients(ctx, "Worker 2")
	if _, _, err := s.AssignZone(ctx, "Zone 1", "Worker 2", nil); err != nil {
		t.Fatalf("AssignZone: %v", err)
	}
	after, _ := s.RouteClients(ctx, "Worker 2")
	if len(after) != len(before)+len(route) {
		t.Fatalf("expected %d stops after reassignment, got %d", len(before)+len(route), len(after))
	}
	if empty, _ := s.RouteClients(ctx, "Worker 1"); len(empty) != 0 {
		t.Fatalf("Worker 1 should have no stops, got %d", len(empty))
	}
}

func TestDeviceTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveDeviceToken(ctx, models.DeviceToken{Worker: "Worker 1", Token: "abc", DeviceType: "ios"}); err != nil {
		t.Fatalf("SaveDeviceToken: %v", err)
	}
	// Re-registering moves the token to the new worker
	if err := s.SaveDeviceToken(ctx, models.DeviceToken{Worker: "Worker 2", Token: "abc", DeviceType: "ios"}); err != nil {
		t.Fatalf("SaveDeviceToken: %v", err)
	}
	if err := s.SaveDeviceToken(ctx, models.DeviceToken{Worker: "Nobody", Token: "z", DeviceType: "ios"}); !errors.Is(err, ErrUnknownWorker) {
		t.Fatalf("expected ErrUnknownWorker, got %v", err)
	}

	if tokens, _ := s.DeviceTokens(ctx, "Worker 1"); len(tokens) != 0 {
		t.Fatalf("expected no tokens for Worker 1, got %v", tokens)
	}
	if tokens, _ := s.DeviceTokens(ctx, "Worker 2"); len(tokens) != 1 || tokens[0] != "abc" {
		t.Fatalf("unexpected tokens for Worker 2: %v", tokens)
	}
}
