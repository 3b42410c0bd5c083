package handlers

import (
	"github.com/gin-gonic/gin"

	"vetcare-server/internal/analytics"
	"vetcare-server/internal/utils"
)

// AnalyticsHandler serves dashboard statistics.
type AnalyticsHandler struct {
	Analytics *analytics.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: svc}
}

// GetDashboard returns platform wide statistics (admin).
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.Analytics.Dashboard(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Analytics fetched successfully", dashboard)
}

// GetVeterinarianStats returns the calling veterinarian's statistics.
func (h *AnalyticsHandler) GetVeterinarianStats(c *gin.Context) {
	vet, ok := requireVeterinarian(c)
	if !ok {
		return
	}
	stats, err := h.Analytics.Veterinarian(c.Request.Context(), vet.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Analytics fetched successfully", stats)
}
