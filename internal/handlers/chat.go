package handlers

import (
	"net/http"
	"strconv"

	"strangerchat/internal/services"
	"strangerchat/internal/store"
	"strangerchat/internal/utils"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// EndChat completes the session in the given room. Ending a session that the
// partner already ended returns the stored record, not an error.
func (h *ChatHandler) EndChat(c *gin.Context) {
	roomID := c.Param("id")

	var endData struct {
		UserID string `json:"user_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&endData); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{
			"user_id": "User ID is required",
		})
		return
	}

	session, err := h.chatService.GetSession(c.Request.Context(), roomID)
	if err != nil {
		utils.NotFoundResponse(c, "Chat room not found")
		return
	}

	if !session.HasParticipant(endData.UserID) {
		utils.ForbiddenResponse(c, "Access denied to this chat room")
		return
	}

	ended, err := h.chatService.EndChat(c.Request.Context(), roomID, endData.UserID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to end chat")
		return
	}

	response := map[string]interface{}{
		"room_id":          ended.RoomID,
		"status":           ended.Status,
		"ended_by":         ended.EndedBy,
		"duration_seconds": ended.Duration,
		"message_count":    ended.MessageCount,
	}

	utils.SuccessResponseWithMessage(c, "Chat ended", response)
}

// GetActiveChat returns the user's current active session, if any.
func (h *ChatHandler) GetActiveChat(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "User ID is required")
		return
	}

	session, err := h.chatService.ActiveSession(c.Request.Context(), userID)
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFoundResponse(c, "No active chat")
			return
		}
		utils.InternalErrorResponse(c, "Failed to get active chat")
		return
	}

	utils.SuccessResponse(c, session)
}

// ListChats returns the user's sessions, newest first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "User ID is required")
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	sessions, err := h.chatService.ListSessions(c.Request.Context(), userID, limit)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list chats")
		return
	}

	utils.SuccessResponseWithMeta(c, sessions, &utils.Meta{
		Limit: int(limit),
		Total: len(sessions),
	})
}
