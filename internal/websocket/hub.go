package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"busdriver/internal/middleware"
	"busdriver/internal/models"
)

// EventTripSynced is pushed when the backend accepts a trip upload
const EventTripSynced = "trip_synced"

// Event is the envelope of every message pushed to clients
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	log *zap.SugaredLogger

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Infof("✅ [WEBSOCKET] Client connected: %s (%s), %d total", client.UserID, client.UserRole, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
				h.log.Infof("🔴 [WEBSOCKET] Client disconnected: %s (%s), %d remaining", client.UserID, client.UserRole, len(h.clients))
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.shutdown()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client; it blocks until the hub loop accepts it
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastTripSynced pushes an accepted upload to the dispatchers watching
// its route and to the uploading driver's own connections. It returns the
// number of dispatchers reached.
func (h *Hub) BroadcastTripSynced(event models.TripSyncedEvent) int {
	data, err := json.Marshal(Event{Type: EventTripSynced, Data: event})
	if err != nil {
		h.log.Errorf("❌ Failed to marshal %s event: %v", EventTripSynced, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dispatchers := 0
	for client := range h.clients {
		switch {
		case client.UserRole == middleware.RoleDispatcher && client.watches(event.RouteID):
			if h.deliver(client, data) {
				dispatchers++
			}
		case client.UserID == event.DriverID:
			h.deliver(client, data)
		}
	}
	return dispatchers
}

func (h *Hub) deliver(c *Client, data []byte) bool {
	if c.enqueue(data) {
		return true
	}
	h.log.Warnf("⚠️ Feed client %s is not keeping up, event skipped", c.UserID)
	return false
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
