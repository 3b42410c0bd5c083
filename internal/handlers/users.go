package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// UserHandler handles administrative user management.
type UserHandler struct {
	DB       *gorm.DB
	Sessions *identity.SessionRevoker
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, sessions *identity.SessionRevoker) *UserHandler {
	return &UserHandler{DB: db, Sessions: sessions}
}

// GetUsers lists profiles, optionally filtered by role and a name or email search.
func (h *UserHandler) GetUsers(c *gin.Context) {
	p := utils.GetPagination(c)
	query := h.DB.WithContext(c.Request.Context()).Model(&models.Profile{})

	if role := c.Query("role"); role != "" {
		r, err := models.ParseRole(role)
		if err != nil {
			utils.BadRequest(c, "Invalid role filter")
			return
		}
		query = query.Where("role = ?", r)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to count users", err))
		return
	}
	var profiles []models.Profile
	if err := query.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&profiles).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to fetch users", err))
		return
	}
	utils.Paginated(c, "Users fetched successfully", profiles, total, p)
}

// GetUserByID fetches one profile by user id.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	var profile models.Profile
	if err := h.DB.First(&profile, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.RespondError(c, apperr.Internal("failed to fetch user", err))
		}
		return
	}
	utils.Success(c, "User fetched successfully", profile)
}

// SetActiveRequest toggles whether an account may sign in.
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetActive activates or deactivates an account. Deactivation revokes every
// session of the user.
func (h *UserHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID := c.Param("id")
	if callerID, _ := middleware.GetUserIDFromContext(c); callerID == userID && !*req.IsActive {
		utils.BadRequest(c, "You cannot deactivate your own account")
		return
	}

	ctx := c.Request.Context()
	res := h.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Update("is_active", *req.IsActive)
	if res.Error != nil {
		utils.RespondError(c, apperr.Internal("failed to update user", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "User not found")
		return
	}

	if !*req.IsActive && h.Sessions != nil {
		if err := h.Sessions.RevokeAll(ctx, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("failed to revoke sessions of deactivated user")
		}
	}

	var profile models.Profile
	if err := h.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to fetch user", err))
		return
	}
	utils.Success(c, "User updated successfully", profile)
}
