package handlers

import (
	"net/http"

	"strangerchat/internal/services"
	"strangerchat/internal/store"
	"strangerchat/internal/utils"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queueService *services.QueueService
}

func NewQueueHandler(queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// Enqueue puts a user into the waiting queue.
func (h *QueueHandler) Enqueue(c *gin.Context) {
	var enqueueData struct {
		UserID string `json:"user_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&enqueueData); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{
			"user_id": "User ID is required",
		})
		return
	}

	ticket, err := h.queueService.Enqueue(c.Request.Context(), enqueueData.UserID)
	if err != nil {
		switch err {
		case store.ErrAlreadyQueued:
			utils.ConflictResponse(c, "User is already in the waiting queue")
		case services.ErrStoreOffline:
			utils.ServiceUnavailableResponse(c, "Matching is temporarily unavailable")
		default:
			utils.InternalErrorResponse(c, "Failed to join the waiting queue")
		}
		return
	}

	response := map[string]interface{}{
		"status":      "queued",
		"ticket_id":   ticket.ID.Hex(),
		"enqueued_at": ticket.EnqueuedAt,
		"expires_at":  ticket.ExpiresAt,
	}

	utils.SuccessResponseWithMessage(c, "Looking for a match...", response)
}

// Cancel withdraws a user from the waiting queue. Cancelling when not queued
// still succeeds.
func (h *QueueHandler) Cancel(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.queueService.Cancel(c.Request.Context(), userID); err != nil {
		if err == services.ErrStoreOffline {
			utils.ServiceUnavailableResponse(c, "Matching is temporarily unavailable")
			return
		}
		utils.InternalErrorResponse(c, "Failed to leave the waiting queue")
		return
	}

	utils.SuccessResponseWithMessage(c, "Left the waiting queue", nil)
}

// Status reports the user's queue position and an estimated wait.
func (h *QueueHandler) Status(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "User ID is required")
		return
	}

	status, err := h.queueService.Status(c.Request.Context(), userID)
	if err != nil {
		if err == store.ErrNotFound {
			utils.NotFoundResponse(c, "User is not in the waiting queue")
			return
		}
		utils.InternalErrorResponse(c, "Failed to get queue status")
		return
	}

	utils.SuccessResponse(c, status)
}
