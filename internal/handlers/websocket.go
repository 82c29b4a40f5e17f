package handlers

import (
	"net/http"

	"strangerchat/internal/services"
	"strangerchat/internal/utils"
	"strangerchat/internal/websocket"
	"strangerchat/pkg/logger"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *websocket.Hub
	chatService *services.ChatService
	upgrader    gorillaws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, chatService *services.ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		chatService: chatService,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from any origin in development.
				// In production, check the origin properly.
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps. The
// anonymous identity is carried in the user_id query parameter.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := websocket.NewClient(conn, h.hub, userID, h.chatService)
	h.hub.Register <- client

	// Reattach to an in-flight session after a reconnect.
	if session, err := h.chatService.ActiveSession(c.Request.Context(), userID); err == nil {
		h.hub.AddClientToRoom(client, session.RoomID)
	}

	go client.WritePump()
	go client.ReadPump()
}
