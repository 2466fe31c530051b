package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Event is a single push message on a session feed. Data carries the
// domain payload (a location fix, an alert) as-is.
type Event struct {
	Type        string      `json:"type"`
	SessionCode string      `json:"session_code"`
	Data        interface{} `json:"data"`
}

// Hub fans session events out to connected websocket clients. With a Redis
// client attached, events also travel through pub/sub so every instance
// behind a load balancer reaches its own clients.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SessionCode string
	Send        chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(code string) *Client {
	client := &Client{
		SessionCode: strings.ToUpper(code),
		Send:        make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.SessionCode] == nil {
		h.clients[client.SessionCode] = map[*Client]struct{}{}
	}
	h.clients[client.SessionCode][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionCode]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionCode)
		}
	}
	close(client.Send)
}

// Publish serializes the event and delivers it to the session's clients.
// Slow clients are skipped rather than blocking the sender.
func (h *Hub) Publish(code, eventType string, data interface{}) {
	code = strings.ToUpper(code)
	payload, err := json.Marshal(Event{Type: eventType, SessionCode: code, Data: data})
	if err != nil {
		log.Printf("stream event marshal error: %v", err)
		return
	}
	h.broadcast(code, payload)
}

// With Redis attached, local clients are reached through the subscription
// like everyone else's, so events are never delivered twice.
func (h *Hub) broadcast(code string, payload []byte) {
	if h.redis == nil {
		h.deliver(code, payload)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(code), payload).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
		h.deliver(code, payload)
	}
}

// The read lock is held across the send loop: Unregister closes Send under
// the write lock, so no send can race the close, and sends never block.
func (h *Hub) deliver(code string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[code] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "session:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(codeFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(code string) string {
	return "session:" + code + ":events"
}

func codeFromChannel(ch string) string {
	// session:{code}:events
	const prefix = "session:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
