package ws

import (
	"sync"

	"kaamsetu_backend/internal/logger"
)

// Hub fans notification payloads out to every live connection of a user.
// A user can hold several connections (phone plus browser); each gets its
// own Client. The hub implements services.Pusher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	logger.Debug("ws client registered", "user_id", client.UserID, "connections", len(conns))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
}

// Push delivers the payload to each of the user's connections without
// blocking. A connection whose send buffer is full is skipped; the
// durable notification row covers the miss.
func (h *Hub) Push(userID string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			logger.Warn("ws send buffer full, dropping push", "user_id", userID)
		}
	}
}

func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
