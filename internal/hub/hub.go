package hub

import (
	"encoding/json"
	"sync"
)

// Change types broadcast on the rooms board.
const (
	ChangeJoined   = "room.joined"
	ChangeLeft     = "room.left"
	ChangeLocked   = "room.locked"
	ChangeUnlocked = "room.unlocked"
	ChangeUpdated  = "room.updated"
)

// Change is a rooming update pushed to clients watching an event's board.
type Change struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single watcher connection. It's essentially a
// channel the SSE handler listens to.
type Client chan []byte

// Hub manages the watchers of every event's rooms board.
type Hub struct {
	events map[uint]map[Client]bool
	mu     sync.RWMutex
}

// GlobalHub is the singleton instance of our Hub.
var GlobalHub = NewHub()

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		events: make(map[uint]map[Client]bool),
	}
}

// Subscribe adds a watcher to an event's board.
func (h *Hub) Subscribe(eventID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.events[eventID]; !ok {
		h.events[eventID] = make(map[Client]bool)
	}
	h.events[eventID][client] = true
}

// Unsubscribe removes a watcher from an event's board.
func (h *Hub) Unsubscribe(eventID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.events[eventID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client) // Signals the SSE handler to stop.
			if len(clients) == 0 {
				delete(h.events, eventID)
			}
		}
	}
}

// Broadcast sends a change to every watcher of the event's board.
func (h *Hub) Broadcast(eventID uint, change Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.events[eventID]; ok {
		messageBytes, err := json.Marshal(change)
		if err != nil {
			return
		}

		for client := range clients {
			// Non-blocking send so a slow watcher cannot stall the hub.
			select {
			case client <- messageBytes:
			default:
			}
		}
	}
}
