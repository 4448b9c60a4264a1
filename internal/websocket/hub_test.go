package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"zoneroute/internal/models"
)

type staticRoster []string

func (r staticRoster) Workers(ctx context.Context) ([]string, error) { return r, nil }

func testClient(h *Hub, role, worker string) *Client {
	c := &Client{ID: role + worker, Role: role, Worker: worker, hub: h, send: make(chan []byte, 4)}
	h.clients[c] = true
	return c
}

func TestDeliverRoutesByRoleAndWorker(t *testing.T) {
	h := NewHub()
	admin := testClient(h, RoleAdmin, "")
	w1 := testClient(h, RoleWorker, "Worker 1")
	w2 := testClient(h, RoleWorker, "Worker 2")

	h.deliver(&Message{Event: models.Event{Type: models.EventZoneAssigned}, Workers: []string{"Worker 1"}})

	if len(admin.send) != 1 {
		t.Fatalf("admin should receive every event, got %d", len(admin.send))
	}
	if len(w1.send) != 1 {
		t.Fatalf("Worker 1 should receive its event, got %d", len(w1.send))
	}
	if len(w2.send) != 0 {
		t.Fatalf("Worker 2 should not receive Worker 1's event, got %d", len(w2.send))
	}

	var ev models.Event
	if err := json.Unmarshal(<-admin.send, &ev); err != nil || ev.Type != models.EventZoneAssigned {
		t.Fatalf("unexpected payload: %+v err=%v", ev, err)
	}
}

func TestDeliverDropsSlowClient(t *testing.T) {
	h := NewHub()
	slow := testClient(h, RoleAdmin, "")
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- []byte("{}")
	}

	h.deliver(&Message{Event: models.Event{Type: models.EventClientUpdated}})

	if h.GetClientCount() != 0 {
		t.Fatalf("expected slow client to be dropped, %d remain", h.GetClientCount())
	}
}

func TestHandleWebSocketRejectsBadRole(t *testing.T) {
	h := NewHub()
	handler := HandleWebSocket(h, staticRoster{"Worker 1"})

	for _, target := range []string{"/ws", "/ws?role=boss", "/ws?role=worker&worker=Nobody"} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestWorkerReceivesPublishedEvent(t *testing.T) {
	h := NewHub()
	go h.Run()

	srv := httptest.NewServer(HandleWebSocket(h, staticRoster{"Worker 1"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?role=worker&worker=Worker+1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !h.IsWorkerConnected("Worker 1") {
		if time.Now().After(deadline) {
			t.Fatal("worker never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	worker := "Worker 1"
	h.Publish(models.Event{Type: models.EventZoneAssigned, Zone: &models.Zone{Name: "Zone 3", Worker: &worker, Version: 2}}, worker)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Zone == nil || ev.Zone.Name != "Zone 3" || !ev.Zone.AssignedTo("Worker 1") {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
