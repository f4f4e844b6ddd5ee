package handlers

import (
	"net/http"

	"github.com/careerforge/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	svc services.AnalyticsService
}

func NewAnalyticsHandler(svc services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// PlacementSummary is admin-only (RequireAdmin on the route).
func (h *AnalyticsHandler) PlacementSummary(c *gin.Context) {
	rows, err := h.svc.PlacementSummary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": rows})
}
