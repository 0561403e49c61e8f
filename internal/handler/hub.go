// internal/handler/hub.go
package handler

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Keepalive timings shared by every dashboard socket. pingPeriod must be
// shorter than pongWait so the peer's read deadline is refreshed in time.
var (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub keeps every connected dashboard tab so transient notifications reach
// all of them. Payment tracking connections are not routed through the hub;
// each tracker owns its socket.
type Hub struct {
	clients    map[string]*DashClient
	register   chan *DashClient
	unregister chan *DashClient
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *zap.Logger
}

type DashClient struct {
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte
	hub    *Hub
}

// Frame is the wire shape for everything pushed to the dashboard.
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*DashClient),
		register:   make(chan *DashClient),
		unregister: make(chan *DashClient),
		broadcast:  make(chan []byte, 64),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ConnID] = client
			h.mu.Unlock()
			h.logger.Debug("dashboard client connected",
				zap.String("conn_id", client.ConnID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ConnID]; ok {
				delete(h.clients, client.ConnID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Debug("dashboard client disconnected",
				zap.String("conn_id", client.ConnID))

		case message := <-h.broadcast:
			h.mu.RLock()
			for id, client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warn("dropping slow dashboard client",
						zap.String("conn_id", id))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Notify pushes a transient toast to every connected tab. Fire and forget.
func (h *Hub) Notify(kind, message string) {
	frame := Frame{
		Type:      "notification",
		Data:      map[string]string{"kind": kind, "message": message},
		Timestamp: time.Now().Unix(),
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		h.logger.Warn("notification broadcast queue full")
	}
}

func (c *DashClient) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *DashClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
