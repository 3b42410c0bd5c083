package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/utils"
)

const (
	defaultRateLimit  = 10
	defaultRateWindow = time.Minute
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter counts requests per endpoint and client IP in fixed windows.
// Counters live in Redis when a client is given and in process memory
// otherwise.
type RateLimiter struct {
	redis  *redis.Client
	local  *gocache.Cache
	limit  int
	window time.Duration
}

// NewRateLimiter creates a RateLimiter; rdb may be nil.
func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultRateWindow
	}
	return &RateLimiter{
		redis:  rdb,
		local:  gocache.New(cfg.Window, 2*cfg.Window),
		limit:  cfg.Limit,
		window: cfg.Window,
	}
}

func rateLimitKey(endpoint, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		key := rateLimitKey(endpoint, clientIP)

		allowed, retryAfter, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("ip", clientIP).Str("endpoint", endpoint).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}
		if !allowed {
			log.Warn().Str("ip", clientIP).Str("endpoint", endpoint).Msg("rate limit exceeded")
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			utils.AbortWithError(c, apperr.New(apperr.KindRateLimited, apperr.CodeRateLimited,
				fmt.Sprintf("Too many requests. Please try again in %d seconds.", seconds)))
			return
		}
		c.Next()
	}
}

// Allow counts one request for key and reports whether it is within the
// limit, and if not how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.redis == nil {
		return l.allowLocal(key)
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	if count <= int64(l.limit) {
		return true, 0, nil
	}
	retry, err := l.redis.TTL(ctx, key).Result()
	if err != nil || retry <= 0 {
		retry = l.window
	}
	return false, retry, nil
}

func (l *RateLimiter) allowLocal(key string) (bool, time.Duration, error) {
	// Add fails when the window is already open, which is fine.
	_ = l.local.Add(key, 0, l.window)
	count, err := l.local.IncrementInt(key, 1)
	if err != nil {
		return false, 0, err
	}
	if count <= l.limit {
		return true, 0, nil
	}
	retry := l.window
	if _, expires, found := l.local.GetWithExpiration(key); found && !expires.IsZero() {
		retry = time.Until(expires)
	}
	return false, retry, nil
}

// Reset clears the counter of one endpoint and client.
func (l *RateLimiter) Reset(ctx context.Context, clientIP, endpoint string) error {
	key := rateLimitKey(endpoint, clientIP)
	l.local.Delete(key)
	if l.redis == nil {
		return nil
	}
	return l.redis.Del(ctx, key).Err()
}
