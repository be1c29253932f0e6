package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/realtime"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigin "*"
// accepts any origin.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigin string, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		log: log,
	}
}

// HandleWebSocket upgrades an authenticated request and hands the
// connection to the hub.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithContext(r.Context()).Warn("Error upgrading connection", "user_id", userID, "error", err)
		return
	}
	if err := h.hub.Attach(conn, userID); err != nil {
		h.log.Warn("Hub refused connection", "user_id", userID, "error", err)
	}
}
