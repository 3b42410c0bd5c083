package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/config"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Resolver *identity.Resolver
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, resolver *identity.Resolver) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Resolver: resolver}
}

// RegisterRequest represents the request body for pet owner registration.
type RegisterRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

// Register handles pet owner registration. Veterinarians register through
// the verification flow.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return // Error response handled by BindAndValidate
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to check email", err))
		return
	}
	if existing > 0 {
		utils.RespondError(c, apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "User with this email already exists"))
		return
	}

	user := models.User{Email: email, Role: models.RolePetOwner}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, apperr.Internal("failed to hash password", err))
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.Profile{
			ID:                 user.ID,
			Email:              email,
			FullName:           strings.TrimSpace(req.FullName),
			Phone:              req.Phone,
			Role:               models.RolePetOwner,
			IsActive:           true,
			VerificationStatus: models.VerificationNotRequired,
			Theme:              models.ThemeLight,
			Locale:             "en",
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		return tx.Create(&models.PetOwner{UserID: user.ID, Address: req.Address, City: req.City}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondError(c, apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "User with this email already exists"))
			return
		}
		utils.RespondError(c, apperr.Internal("failed to register user", err))
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
	Profile      models.Profile       `json:"profile"`
}

// Login checks the password and the account gate, then issues tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.RespondError(c, apperr.Internal("failed to load user", err))
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	principal, err := h.Resolver.Resolve(c.Request.Context(), user.ID)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Code == apperr.CodeAccountInactive {
			log.Info().Str("user_id", user.ID).Str("reason", e.Message).Msg("sign in refused for inactive account")
		}
		utils.RespondError(c, err)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, &user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
		Profile:      principal.Profile,
	})
}

func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", apperr.Internal("failed to generate tokens", err)
	}
	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
		IsRevoked: false,
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		return "", "", apperr.Internal("failed to store refresh token", err)
	}

	c.SetCookie(
		"refresh_token",
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)
	return accessToken, refreshTokenString, nil
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token. The account gate is checked again so
// a deactivated veterinarian cannot keep a session alive.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie("refresh_token")
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}
	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.RespondError(c, apperr.Internal("failed to check refresh token", err))
		}
		return
	}

	if _, err := h.Resolver.Resolve(c.Request.Context(), claims.UserID); err != nil {
		utils.RespondError(c, err)
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to load user", err))
		return
	}
	if err := h.DB.Model(&storedToken).Update("is_revoked", true).Error; err != nil {
		utils.RespondError(c, apperr.Internal("failed to revoke refresh token", err))
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, &user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie("refresh_token")
	}
	if req.RefreshToken == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	res := h.DB.Model(&models.RefreshToken{}).
		Where("token = ? AND user_id = ? AND is_revoked = ?", req.RefreshToken, userID, false).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()})
	if res.Error != nil {
		utils.RespondError(c, apperr.Internal("failed to revoke refresh token", res.Error))
		return
	}

	c.SetCookie("refresh_token", "", -1, "/", "", h.Cfg.Environment != "development", true)
	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// ProfileResponse is the caller's profile with its role specific record.
type ProfileResponse struct {
	Profile      models.Profile       `json:"profile"`
	PetOwner     *models.PetOwner     `json:"petOwner,omitempty"`
	Veterinarian *models.Veterinarian `json:"veterinarian,omitempty"`
}

func profileResponse(p *identity.Principal) ProfileResponse {
	return ProfileResponse{Profile: p.Profile, PetOwner: p.PetOwner(), Veterinarian: p.Veterinarian()}
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.RespondError(c, apperr.ErrUnauthenticated)
		return
	}
	utils.Success(c, "Profile fetched successfully", profileResponse(principal))
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	FullName         *string `json:"fullName" binding:"omitempty,min=1,max=200"`
	Phone            *string `json:"phone" binding:"omitempty,max=50"`
	Address          *string `json:"address" binding:"omitempty,max=255"`
	City             *string `json:"city" binding:"omitempty,max=100"`
	EmergencyContact *string `json:"emergencyContact" binding:"omitempty,max=100"`
	Bio              *string `json:"bio"`
	IsAvailable      *bool   `json:"isAvailable"`
}

// UpdateProfile updates the caller's profile and role specific record.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.RespondError(c, apperr.ErrUnauthenticated)
		return
	}
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	profileUpdates := map[string]interface{}{}
	if req.FullName != nil {
		profileUpdates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		profileUpdates["phone"] = *req.Phone
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if len(profileUpdates) > 0 {
			if err := tx.Model(&models.Profile{}).Where("id = ?", principal.UserID).Updates(profileUpdates).Error; err != nil {
				return err
			}
		}
		return identity.Match(principal,
			func(o *models.PetOwner) error {
				updates := map[string]interface{}{}
				if req.Address != nil {
					updates["address"] = *req.Address
				}
				if req.City != nil {
					updates["city"] = *req.City
				}
				if req.EmergencyContact != nil {
					updates["emergency_contact"] = *req.EmergencyContact
				}
				if len(updates) == 0 {
					return nil
				}
				return tx.Model(&models.PetOwner{}).Where("id = ?", o.ID).Updates(updates).Error
			},
			func(v *models.Veterinarian) error {
				updates := map[string]interface{}{}
				if req.FullName != nil {
					updates["full_name"] = strings.TrimSpace(*req.FullName)
				}
				if req.Bio != nil {
					updates["bio"] = *req.Bio
				}
				if req.IsAvailable != nil {
					updates["is_available"] = *req.IsAvailable
				}
				if len(updates) == 0 {
					return nil
				}
				return tx.Model(&models.Veterinarian{}).Where("id = ?", v.ID).Updates(updates).Error
			},
			func() error { return nil },
		)
	})
	if err != nil {
		utils.RespondError(c, apperr.Internal("failed to update profile", err))
		return
	}

	updated, err := h.Resolver.Resolve(c.Request.Context(), principal.UserID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", profileResponse(updated))
}
