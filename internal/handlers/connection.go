package handlers

import (
	"time"

	"strangerchat/internal/models"
	"strangerchat/internal/services"
	"strangerchat/internal/utils"

	"github.com/gin-gonic/gin"
)

type ConnectionHandler struct {
	monitor *services.ConnectionMonitor
	started time.Time
}

func NewConnectionHandler(monitor *services.ConnectionMonitor) *ConnectionHandler {
	return &ConnectionHandler{
		monitor: monitor,
		started: time.Now(),
	}
}

// GetStatus returns the monitor's last observed connection status without
// probing the store.
func (h *ConnectionHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, h.monitor.Status())
}

// CheckNow runs an immediate probe and returns the resulting status. Useful
// for a client-side retry button. When the monitor has given up after
// exhausting its retries, this restarts periodic checking with a fresh
// retry budget.
func (h *ConnectionHandler) CheckNow(c *gin.Context) {
	if h.monitor.Status().State == models.StateFailed {
		h.monitor.StartConnectionCheck()
	}
	connected := h.monitor.CheckConnection()

	status := h.monitor.Status()
	if connected {
		utils.SuccessResponseWithMessage(c, "Store is reachable", status)
		return
	}
	utils.SuccessResponseWithMessage(c, "Store is unreachable", status)
}

// Health is the liveness endpoint. It reports degraded rather than failing
// when the store is down, so load balancers keep routing to the process.
func (h *ConnectionHandler) Health(c *gin.Context) {
	status := h.monitor.Status()

	health := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"store": map[string]interface{}{
			"state":     status.State,
			"connected": status.Connected,
		},
	}
	if !status.Connected {
		health["status"] = "degraded"
	}

	utils.SuccessResponse(c, health)
}
