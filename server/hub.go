package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans recomputed series out to websocket chart clients. Each client
// subscribes to one indicator slug; a slow client is dropped rather than
// allowed to block the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]bool)}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	slug string
}

// Subscribe upgrades the connection and registers the client for a slug.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, slug string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, 16), slug: slug}

	h.mu.Lock()
	if h.clients[slug] == nil {
		h.clients[slug] = make(map[*client]bool)
	}
	h.clients[slug][c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Broadcast queues a payload to every subscriber of the slug.
func (h *Hub) Broadcast(slug string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[slug] {
		select {
		case c.send <- payload:
		default:
			// Buffer full; the write pump will be torn down by readPump
			// when the connection is closed.
			log.Printf("ws: dropping update for slow client on %s", slug)
		}
	}
}

// Subscribers reports how many clients watch a slug.
func (h *Hub) Subscribers(slug string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[slug])
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.slug]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.slug)
		}
	}
	h.mu.Unlock()

	close(c.send)
	c.conn.Close()
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump drains control frames and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
