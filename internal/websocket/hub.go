package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/KayTeo/mimir-extension/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// redisChannel carries surface events between coordinator instances.
const redisChannel = "surface_events"

// Hub fans UI events out to every connected surface. Events are
// fire-and-forget: a slow surface is dropped, never waited on.
type Hub struct {
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fan-out
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Hub", "Surface connected", map[string]interface{}{"surface_id": client.SurfaceID})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Hub", "Surface disconnected", map[string]interface{}{"surface_id": client.SurfaceID})
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastRaw sends an already-serialized event to every connected surface
// and relays it to other instances.
func (h *Hub) BroadcastRaw(data []byte) {
	h.deliverLocal(data)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"origin":  instanceID,
			"message": json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), redisChannel, payload)
	}
}

func (h *Hub) deliverLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Buffer full; the surface is gone or stuck.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			Origin  string          `json:"origin"`
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Malformed relay payload", map[string]interface{}{"error": err.Error()})
			continue
		}

		// Skip events this instance published itself; they were already
		// delivered locally.
		if payload.Origin == instanceID {
			continue
		}

		h.deliverLocal(payload.Message)
	}
}
