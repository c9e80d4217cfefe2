package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/federation-system/realtime"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origins once they are fixed.
		return true
	},
}

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs handles GET /ws/categories/{categoryID}: a push-only occupancy feed
// for one category.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	categoryID, err := urlParamInt(r, "categoryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.Int("category_id", categoryID), slog.Any("error", err))
		return
	}

	client := &realtime.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: realtime.CategoryRoom(categoryID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
