package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/pointerzone/internal/hover"
	"github.com/ayusman/pointerzone/internal/log"
)

const (
	clientBuffer = 32
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventMessage is the JSON frame sent to event subscribers.
type EventMessage struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Zone      string `json:"zone"`
	Timestamp int64  `json:"timestamp"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub broadcasts zone events to WebSocket subscribers. A subscriber
// that falls behind loses events rather than stalling the pipeline.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*eventClient]struct{}
	closed  bool
}

// NewEventHub creates an empty EventHub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*eventClient]struct{})}
}

// Publish sends ev to every connected subscriber without blocking.
func (h *EventHub) Publish(ev hover.Event) {
	msg, err := json.Marshal(EventMessage{
		ID:        uuid.New().String(),
		Type:      string(ev.Type),
		Zone:      ev.ZoneID,
		Timestamp: ev.Timestamp.UnixMilli(),
	})
	if err != nil {
		log.Warn("[WS] encoding event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Debug("[WS] subscriber behind, dropping %s %s", ev.Type, ev.ZoneID)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("[WS] upgrade error: %v", err)
		return
	}

	c := &eventClient{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.add(c) {
		conn.Close()
		return
	}
	defer h.remove(c)

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *EventHub) add(c *eventClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *EventHub) remove(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// writeLoop drains the send channel. When it closes, a close frame is sent
// and the read loop in ServeHTTP ends.
func (c *eventClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
