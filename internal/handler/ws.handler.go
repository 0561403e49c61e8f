// internal/handler/ws.handler.go
package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WSHandler attaches dashboard tabs to the notification hub.
type WSHandler struct {
	hub    *Hub
	logger *zap.Logger
}

func NewWSHandler(hub *Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// HandleNotifications upgrades the connection and keeps it registered for
// toast broadcasts until the tab closes.
func (h *WSHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &DashClient{
		ConnID: uuid.NewString(),
		Conn:   conn,
		Send:   make(chan []byte, 64),
		hub:    h.hub,
	}
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
