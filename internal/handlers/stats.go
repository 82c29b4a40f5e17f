package handlers

import (
	"net/http"

	"strangerchat/internal/services"
	"strangerchat/internal/utils"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetUserStatistics returns the user's aggregate chat statistics. A user with
// no history gets a zeroed record rather than 404.
func (h *StatsHandler) GetUserStatistics(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "User ID is required")
		return
	}

	stats, err := h.statsService.GetUserStatistics(c.Request.Context(), userID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to get user statistics")
		return
	}

	utils.SuccessResponse(c, stats)
}
