package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/service"
)

// DashboardHandler serves the activity feed and dashboard counters.
type DashboardHandler struct {
	activity *service.ActivityService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{activity: activity}
}

// Activity handles GET /api/v1/dashboard/activity.
func (h *DashboardHandler) Activity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := h.activity.Feed(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		logger.CtxError(c.Request.Context(), "activity feed failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": items})
}

// Stats handles GET /api/v1/dashboard/stats.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.activity.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logger.CtxError(c.Request.Context(), "stats query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
