package identity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"vetcare-server/internal/models"
)

// SessionRevoker invalidates every session of a user. Refresh tokens are
// revoked in the database; when Redis is configured a revocation timestamp is
// stored so that access tokens issued before it are rejected too.
type SessionRevoker struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
	Now   func() time.Time
}

func revokedKey(userID string) string {
	return fmt.Sprintf("revoked_after:%s", userID)
}

// RevokeAll invalidates all sessions of userID.
func (s *SessionRevoker) RevokeAll(ctx context.Context, userID string) error {
	if err := s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error; err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	if s.Redis == nil {
		return nil
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return s.Redis.Set(ctx, revokedKey(userID), s.now().Unix(), ttl).Err()
}

// IsRevoked reports whether a token issued at issuedAt has been revoked.
// Token iat has second precision, so a token issued in the revocation second
// is kept; the profile gate still rejects it while the account is inactive.
// Redis failures are treated as not revoked.
func (s *SessionRevoker) IsRevoked(ctx context.Context, userID string, issuedAt time.Time) bool {
	if s == nil || s.Redis == nil {
		return false
	}
	val, err := s.Redis.Get(ctx, revokedKey(userID)).Result()
	if err != nil {
		return false
	}
	cutoff, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false
	}
	return issuedAt.Unix() < cutoff
}

func (s *SessionRevoker) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
