package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/models"
)

// Subscriber roles
const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// Hub maintains active WebSocket connections and fans events out to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound events
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// Message is an event plus the workers it concerns. Admins receive every message.
type Message struct {
	Event   models.Event
	Workers []string
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().
				Str("client_id", client.ID).
				Str("role", client.Role).
				Str("worker", client.Worker).
				Int("total", total).
				Msg("✅ [WEBSOCKET] Client CONNECTED")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Info().
					Str("client_id", client.ID).
					Str("role", client.Role).
					Int("remaining", len(h.clients)).
					Msg("🔴 [WEBSOCKET] Client DISCONNECTED")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message *Message) {
	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(message) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, disconnect
			close(client.send)
			delete(h.clients, client)
			log.Warn().Str("client_id", client.ID).Msg("⚠️ Client buffer full, disconnecting")
		}
	}
}

// Publish queues an event for admins and for the named workers.
func (h *Hub) Publish(event models.Event, workers ...string) {
	h.broadcast <- &Message{Event: event, Workers: workers}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsWorkerConnected checks if any session for worker is currently connected
func (h *Hub) IsWorkerConnected(worker string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.Role == RoleWorker && client.Worker == worker {
			return true
		}
	}
	return false
}
