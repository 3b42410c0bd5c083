package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// SettingsHandler reads and writes the caller's display preferences.
type SettingsHandler struct {
	DB *gorm.DB
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{DB: db}
}

// GetSettings returns the settings loaded for this request.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	utils.Success(c, "Settings fetched successfully", middleware.GetSettings(c))
}

// UpdateSettingsRequest represents the request body for updating settings.
type UpdateSettingsRequest struct {
	Theme  string `json:"theme" binding:"omitempty,oneof=light dark"`
	Locale string `json:"locale" binding:"omitempty,min=2,max=10"`
}

// UpdateSettings stores new preferences on the caller's profile.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	settings := middleware.GetSettings(c)
	if req.Theme != "" {
		settings.Theme = req.Theme
	}
	if req.Locale != "" {
		settings.Locale = req.Locale
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	if err := h.DB.WithContext(c.Request.Context()).Model(&models.Profile{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"theme": settings.Theme, "locale": settings.Locale}).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to update settings", err))
		return
	}
	utils.Success(c, "Settings updated successfully", settings)
}
