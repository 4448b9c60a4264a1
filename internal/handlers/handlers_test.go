package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"zoneroute/internal/database"
	"zoneroute/internal/models"
	"zoneroute/internal/websocket"
)

type notice struct {
	tokens []string
	zone   string
}

type fakeNotifier struct {
	sent chan notice
}

func (f *fakeNotifier) NotifyZoneAssigned(ctx context.Context, tokens []string, zone string, stops int, version int64) error {
	f.sent <- notice{tokens: tokens, zone: zone}
	return nil
}

type testServer struct {
	handler  http.Handler
	store    *database.MemoryStore
	notifier *fakeNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	seed, err := database.LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	store, err := database.NewMemoryStore(seed)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	notifier := &fakeNotifier{sent: make(chan notice, 4)}
	h := NewRouter(RouterConfig{
		Store:          store,
		Hub:            hub,
		Notifier:       notifier,
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"*"},
		MaxPhotoBytes:  1 << 20,
	})
	return &testServer{handler: h, store: store, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestGetZones(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/zones", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var zones map[string]models.ZoneResponse
	decode(t, rec, &zones)
	if len(zones) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(zones))
	}
	if zones["Zone 3"].Worker != nil {
		t.Fatal("Zone 3 should be unassigned")
	}
	if zones["Zone 1"].Worker == nil || *zones["Zone 1"].Worker != "Worker 1" {
		t.Fatalf("Zone 1 should belong to Worker 1, got %+v", zones["Zone 1"])
	}
}

func TestAssignZone(t *testing.T) {
	s := newTestServer(t)
	if err := s.store.SaveDeviceToken(context.Background(), models.DeviceToken{Worker: "Worker 2", Token: "tok", DeviceType: "android"}); err != nil {
		t.Fatalf("SaveDeviceToken: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/assign", map[string]interface{}{"zone": "Zone 3", "worker": "Worker 2", "version": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.AssignZoneResponse
	decode(t, rec, &resp)
	if resp.Status != "ok" || resp.Zone != "Zone 3" || resp.Worker != "Worker 2" || resp.Version != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	select {
	case n := <-s.notifier.sent:
		if n.zone != "Zone 3" || len(n.tokens) != 1 || n.tokens[0] != "tok" {
			t.Fatalf("unexpected notification: %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a push notification")
	}

	var zones map[string]models.ZoneResponse
	decode(t, s.do(t, http.MethodGet, "/zones", nil), &zones)
	if w := zones["Zone 3"].Worker; w == nil || *w != "Worker 2" {
		t.Fatalf("assignment not stored: %+v", zones["Zone 3"])
	}
}

func TestAssignZoneErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/assign", map[string]interface{}{"zone": "Zone 9", "worker": "Worker 1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown zone: expected 404, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "error" {
		t.Fatalf("expected status error, got %v", body)
	}

	rec = s.do(t, http.MethodPost, "/assign", map[string]interface{}{"zone": "Zone 1", "worker": "Worker 9"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown worker: expected 400, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/assign", map[string]interface{}{"zone": "Zone 1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing worker: expected 400, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/assign", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", rec.Code)
	}
}

func TestAssignZoneStaleVersion(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPost, "/assign", map[string]interface{}{"zone": "Zone 1", "worker": "Worker 2", "version": 1}); rec.Code != http.StatusOK {
		t.Fatalf("first assign: %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/assign", map[string]interface{}{"zone": "Zone 1", "worker": "Worker 1", "version": 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "conflict" {
		t.Fatalf("expected status conflict, got %v", body)
	}

	var zones map[string]models.ZoneResponse
	decode(t, s.do(t, http.MethodGet, "/zones", nil), &zones)
	if w := zones["Zone 1"].Worker; w == nil || *w != "Worker 2" {
		t.Fatalf("stale assign changed the zone: %+v", zones["Zone 1"])
	}
}

func TestGetClient(t *testing.T) {
	s := newTestServer(t)

	var c models.Client
	rec := s.do(t, http.MethodGet, "/clients/3", nil)
	decode(t, rec, &c)
	if rec.Code != http.StatusOK || c.ID != 3 {
		t.Fatalf("unexpected client: %d %+v", rec.Code, c)
	}

	if rec := s.do(t, http.MethodGet, "/clients/300", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/clients/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var all []models.Client
	decode(t, s.do(t, http.MethodGet, "/clients", nil), &all)
	if len(all) != 30 {
		t.Fatalf("expected 30 clients, got %d", len(all))
	}
}

func TestUpdateClient(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/clients/5", map[string]interface{}{"instructions": "Bins behind the gate", "version": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.UpdateClientResponse
	decode(t, rec, &resp)
	if resp.Status != "ok" || resp.Client == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Client.Instructions != "Bins behind the gate" || resp.Client.FirstService || resp.Client.Version != 2 {
		t.Fatalf("unexpected client: %+v", resp.Client)
	}

	// stale version
	rec = s.do(t, http.MethodPut, "/clients/5", map[string]interface{}{"instructions": "overwrite", "version": 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	c, _ := s.store.GetClient(context.Background(), 5)
	if c.Instructions != "Bins behind the gate" {
		t.Fatalf("stale write changed the client: %+v", c)
	}
}

func TestUpdateClientRejectsOtherFields(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{
		`{"trash_bins": 4}`,
		`{"instructions": "x", "monthly_cost": 1}`,
		`{}`,
		`{"version": 1}`,
	} {
		rec := s.do(t, http.MethodPut, "/clients/1", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}

	if rec := s.do(t, http.MethodPut, "/clients/99", map[string]string{"instructions": "x"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	c, _ := s.store.GetClient(context.Background(), 1)
	if !c.FirstService || c.Version != 1 {
		t.Fatalf("rejected updates changed the client: %+v", c)
	}
}

func TestGetRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/routes/Worker%201", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var route []models.Client
	decode(t, rec, &route)
	for _, c := range route {
		if c.Zone != "Zone 1" {
			t.Fatalf("route contains client from %s", c.Zone)
		}
	}

	if rec := s.do(t, http.MethodGet, "/routes/Nobody", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPhotoLogs(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/clients/7/photos", map[string]interface{}{
		"timestamp": "2026-03-01T09:00:00Z",
		"url":       "data:image/png;base64,AAAA",
		"worker":    "Worker 1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.AppendPhotoResponse
	decode(t, rec, &resp)
	if resp.Status != "ok" || resp.Entry == nil || resp.Entry.ID == "" || resp.Version != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec = s.do(t, http.MethodPost, "/clients/7/photos", map[string]interface{}{
		"timestamp": "2026-03-01T09:05:00Z",
		"url":       "data:image/png;base64,BBBB",
		"version":   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second append: %d", rec.Code)
	}

	var logs []models.PhotoLog
	decode(t, s.do(t, http.MethodGet, "/clients/7/photos", nil), &logs)
	if len(logs) != 2 || !strings.HasSuffix(logs[1].URL, "BBBB") {
		t.Fatalf("unexpected photo logs: %+v", logs)
	}

	var c models.Client
	decode(t, s.do(t, http.MethodGet, "/clients/7", nil), &c)
	if c.PhotoURL == nil || !strings.HasSuffix(*c.PhotoURL, "BBBB") {
		t.Fatalf("expected latest photo on client, got %+v", c.PhotoURL)
	}
}

func TestPhotoLogValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []map[string]interface{}{
		{"url": "data:image/png;base64,AAAA"},
		{"timestamp": "yesterday", "url": "data:image/png;base64,AAAA"},
		{"timestamp": "2026-03-01T09:00:00Z"},
		{"timestamp": "2026-03-01T09:00:00Z", "url": "x", "worker": "Worker 9"},
	}
	for _, body := range cases {
		if rec := s.do(t, http.MethodPost, "/clients/7/photos", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", body, rec.Code)
		}
	}

	if rec := s.do(t, http.MethodPost, "/clients/7/photos", map[string]interface{}{
		"timestamp": "2026-03-01T09:00:00Z",
		"url":       "x",
		"version":   5,
	}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestWorkersAndDeviceTokens(t *testing.T) {
	s := newTestServer(t)

	var workers []string
	decode(t, s.do(t, http.MethodGet, "/workers", nil), &workers)
	if len(workers) != 2 || workers[0] != "Worker 1" {
		t.Fatalf("unexpected workers: %v", workers)
	}

	rec := s.do(t, http.MethodPost, "/workers/Worker%201/device-tokens", map[string]string{"token": "abc", "device_type": "ios"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	tokens, _ := s.store.DeviceTokens(context.Background(), "Worker 1")
	if len(tokens) != 1 || tokens[0] != "abc" {
		t.Fatalf("token not stored: %v", tokens)
	}

	if rec := s.do(t, http.MethodPost, "/workers/Worker%201/device-tokens", map[string]string{"token": "abc", "device_type": "windows"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad device type, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/workers/Nobody/device-tokens", map[string]string{"token": "abc", "device_type": "ios"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown worker, got %d", rec.Code)
	}
}

func TestHealthAndDiagnostics(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/logs/diagnostic", map[string]interface{}{
		"level":   "ERROR",
		"message": "assign failed",
		"source":  "zoneboard",
		"data":    map[string]interface{}{"status": "conflict"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("diagnostic: expected 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/logs/diagnostic", map[string]string{"level": "INFO"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("diagnostic without message: expected 400, got %d", rec.Code)
	}
}

// fakeHub records published events and reports a fixed set of live workers.
type fakeHub struct {
	events     []models.Event
	recipients [][]string
	live       map[string]bool
}

func (h *fakeHub) Publish(event models.Event, workers ...string) {
	h.events = append(h.events, event)
	h.recipients = append(h.recipients, workers)
}

func (h *fakeHub) IsWorkerConnected(worker string) bool { return h.live[worker] }

func assignDirect(t *testing.T, store database.Store, hub *fakeHub, notifier *fakeNotifier, zone, worker string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"zone":"` + zone + `","worker":"` + worker + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/assign", body)
	rec := httptest.NewRecorder()
	AssignZone(store, hub, notifier).ServeHTTP(rec, req)
	return rec
}

func TestAssignZoneEventNamesPreviousWorker(t *testing.T) {
	s := newTestServer(t)
	hub := &fakeHub{}

	rec := assignDirect(t, s.store, hub, s.notifier, "Zone 1", "Worker 2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(hub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(hub.events))
	}
	ev := hub.events[0]
	if ev.Type != models.EventZoneAssigned || ev.PreviousWorker == nil || *ev.PreviousWorker != "Worker 1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if got := hub.recipients[0]; len(got) != 2 || got[0] != "Worker 2" || got[1] != "Worker 1" {
		t.Fatalf("expected new and previous worker as recipients, got %v", got)
	}
}

func TestAssignZoneSkipsPushForLiveWorker(t *testing.T) {
	s := newTestServer(t)
	if err := s.store.SaveDeviceToken(context.Background(), models.DeviceToken{Worker: "Worker 2", Token: "tok", DeviceType: "ios"}); err != nil {
		t.Fatalf("SaveDeviceToken: %v", err)
	}

	hub := &fakeHub{live: map[string]bool{"Worker 2": true}}
	if rec := assignDirect(t, s.store, hub, s.notifier, "Zone 3", "Worker 2"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(hub.events) != 1 {
		t.Fatalf("live worker should still get the event")
	}
	select {
	case n := <-s.notifier.sent:
		t.Fatalf("unexpected push for a connected worker: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}

	hub.live = nil
	if rec := assignDirect(t, s.store, hub, s.notifier, "Zone 3", "Worker 2"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	select {
	case <-s.notifier.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a push once the worker is offline")
	}
}
