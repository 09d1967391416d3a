package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write lock. gorilla/websocket
// permits at most one concurrent writer per connection, and a delivered
// message can be written from two goroutines at once: the sender's HTTP
// goroutine (REST broadcast) and the ws read goroutine (socket relay).
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// ReadJSON reads the next JSON message. Each connection has a single
// reader goroutine, so reads need no lock.
func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Hub manages active WebSocket connections keyed by user ID and provides
// helper methods to deliver events to one or more users.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*Conn]struct{}),
	}
}

// Register adds a connection for the given user.
func (h *Hub) Register(userID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

// Unregister removes a connection for the given user.
func (h *Hub) Unregister(userID string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// SendToUsers delivers the payload to all active connections of the given
// users. Failed connections are closed; removal happens on their next
// Unregister.
func (h *Hub) SendToUsers(userIDs []string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		conns, ok := h.conns[uid]
		if !ok {
			continue
		}
		for conn := range conns {
			if err := conn.WriteJSON(payload); err != nil {
				conn.Close()
			}
		}
	}
}
