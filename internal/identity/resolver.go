package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// Resolver turns a session token or user id into a Principal.
type Resolver struct {
	DB       *gorm.DB
	Secret   string
	Sessions *SessionRevoker
}

// NewResolver creates a Resolver.
func NewResolver(db *gorm.DB, secret string, sessions *SessionRevoker) *Resolver {
	return &Resolver{DB: db, Secret: secret, Sessions: sessions}
}

// Authenticate validates an access token and resolves its principal.
func (r *Resolver) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	claims, err := utils.ValidateToken(token, r.Secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "invalid or expired session", err)
	}
	if claims.IssuedAt != nil && r.Sessions.IsRevoked(ctx, claims.UserID, claims.IssuedAt.Time) {
		return nil, apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthenticated, "session has been revoked")
	}
	return r.Resolve(ctx, claims.UserID)
}

// InactiveReason explains why a veterinarian account cannot sign in.
func InactiveReason(status models.VerificationStatus) string {
	switch status {
	case models.VerificationPending:
		return "Your veterinarian account is under review"
	case models.VerificationRejected:
		return "Your veterinarian application was rejected"
	default:
		return "Your account has not been activated"
	}
}

// Resolve loads the profile and role profile of userID. Inactive accounts are
// rejected and their sessions invalidated.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Principal, error) {
	db := r.DB.WithContext(ctx)

	var profile models.Profile
	if err := db.First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProfileNotFound
		}
		return nil, apperr.Internal("failed to load profile", err)
	}

	role, err := models.ParseRole(string(profile.Role))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, apperr.CodeProfileNotFound, "profile has no valid role", err)
	}

	if !profile.IsActive {
		reason := InactiveReason(profile.VerificationStatus)
		if role != models.RoleVeterinarian {
			reason = InactiveReason(models.VerificationNotRequired)
		}
		if r.Sessions != nil {
			if err := r.Sessions.RevokeAll(ctx, userID); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("failed to invalidate sessions of inactive account")
			}
		}
		return nil, apperr.New(apperr.KindForbidden, apperr.CodeAccountInactive, reason)
	}

	p := &Principal{UserID: userID, Email: profile.Email, Profile: profile}
	switch role {
	case models.RolePetOwner:
		var owner models.PetOwner
		if err := db.First(&owner, "user_id = ?", userID).Error; err != nil {
			return nil, roleProfileError(err, role)
		}
		p.RoleData = PetOwnerProfile{PetOwner: &owner}
	case models.RoleVeterinarian:
		var vet models.Veterinarian
		if err := db.First(&vet, "user_id = ?", userID).Error; err != nil {
			return nil, roleProfileError(err, role)
		}
		p.RoleData = VeterinarianProfile{Veterinarian: &vet}
	case models.RoleAdmin:
		p.RoleData = AdminProfile{}
	}
	return p, nil
}

func roleProfileError(err error, role models.Role) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, apperr.CodeProfileNotFound, fmt.Sprintf("no %s profile for this account", role))
	}
	return apperr.Internal("failed to load role profile", err)
}
