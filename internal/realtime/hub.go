package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is the envelope published to channel subscribers.
type Event struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data"`
}

// Hub maintains the set of connected clients and their channel subscriptions,
// and fans events out to a channel's current subscribers. It keeps nothing
// beyond in-flight delivery: no persistence, no queuing, no retry.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]map[string]struct{}
	channels map[string]map[*Client]struct{}
	logger   *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]map[string]struct{}),
		channels: make(map[string]map[*Client]struct{}),
		logger:   logger,
	}
}

// Register adds a connected client with no subscriptions yet.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = make(map[string]struct{})
	h.mu.Unlock()
}

// Remove drops a client from every channel and closes its send channel.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if chans, ok := h.clients[c]; ok {
		for name := range chans {
			h.dropLocked(c, name)
		}
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Subscribe adds a client to a named channel. The caller must have already
// authorized the subscription.
func (h *Hub) Subscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	chans, ok := h.clients[c]
	if !ok {
		return
	}
	chans[channel] = struct{}{}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][c] = struct{}{}
}

// Unsubscribe removes a client from a named channel.
func (h *Hub) Unsubscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if chans, ok := h.clients[c]; ok {
		delete(chans, channel)
	}
	h.dropLocked(c, channel)
}

func (h *Hub) dropLocked(c *Client, channel string) {
	if subs, ok := h.channels[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Publish sends a named event to all current subscribers of a channel.
// Zero subscribers is a normal case, not an error.
func (h *Hub) Publish(channel, event string, payload any) {
	data, err := json.Marshal(Event{Channel: channel, Event: event, Data: payload})
	if err != nil {
		h.logger.Error("marshal publish", "channel", channel, "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.channels[channel] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// SubscriberCount returns the number of clients subscribed to a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
