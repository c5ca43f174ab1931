package chathub

import (
	"log"
	"sort"
	"sync"
)

// Hub keeps live connections and their room memberships and fans events out
// to them. Delivery never blocks: a client whose buffer is full is handed to
// UnregisterCh and dropped by the relay loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client
	rooms   map[string]map[string]struct{}
	joined  map[string]map[string]struct{} // connID -> rooms

	UnregisterCh chan Client
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]Client),
		rooms:        make(map[string]map[string]struct{}),
		joined:       make(map[string]map[string]struct{}),
		UnregisterCh: make(chan Client, 256),
	}
}

func (h *Hub) Add(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.GetConnID()] = c
}

// Remove drops the connection from every room and returns the client, if any.
// Callers close the client after Remove so no delivery races a closed channel.
func (h *Hub) Remove(connID string) (Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	delete(h.clients, connID)
	for room := range h.joined[connID] {
		h.leaveLocked(connID, room)
	}
	delete(h.joined, connID)
	return c, ok
}

func (h *Hub) Client(connID string) (Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

func (h *Hub) Subscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][connID] = struct{}{}
	if h.joined[connID] == nil {
		h.joined[connID] = make(map[string]struct{})
	}
	h.joined[connID][room] = struct{}{}
}

func (h *Hub) Unsubscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(connID, room)
}

func (h *Hub) leaveLocked(connID, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.joined[connID]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) IsMember(connID, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][connID]
	return ok
}

// Members returns the sorted connection ids subscribed to room.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Broadcast delivers ev to every member of room except exceptConnID.
func (h *Hub) Broadcast(room string, ev Event, exceptConnID string) {
	h.mu.RLock()
	var slow []Client
	for id := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		if c, ok := h.clients[id]; ok && !deliver(c, ev) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	h.drop(slow)
}

// SendTo delivers ev to each listed connection that is still live.
func (h *Hub) SendTo(ev Event, connIDs ...string) {
	h.mu.RLock()
	var slow []Client
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok && !deliver(c, ev) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	h.drop(slow)
}

func deliver(c Client, ev Event) bool {
	select {
	case c.GetSendChannel() <- ev:
		return true
	default:
		return false
	}
}

func (h *Hub) drop(slow []Client) {
	for _, c := range slow {
		log.Printf("WARNING: Send buffer full for connection %s, dropping it", c.GetConnID())
		select {
		case h.UnregisterCh <- c:
		default:
			go func(c Client) { h.UnregisterCh <- c }(c)
		}
	}
}
