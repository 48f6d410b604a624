package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event is a real-time sync notification pushed to connected dashboards:
// instances appearing, completions, and rotation advances.
type Event struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity"`
	Action  string         `json:"action"`
	GroupID int64          `json:"group_id"`
	ID      int64          `json:"id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewEvent creates an Event with the Type field derived from entity and action.
func NewEvent(entity, action string, groupID, id int64, extra map[string]any) Event {
	return Event{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		GroupID: groupID,
		ID:      id,
		Extra:   extra,
	}
}

// Hub maintains the set of active WebSocket clients and routes events to
// the clients watching each group.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every client watching its group. A client with
// groupID 0 watches all groups.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.groupID != 0 && c.groupID != ev.GroupID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop event to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
