package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcare-server/internal/config"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/models"
	"vetcare-server/internal/testutil"
	"vetcare-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(l *RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/appointments", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func post(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.RemoteAddr = ip + ":1234"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterLocal(t *testing.T) {
	r := limitedRouter(NewRateLimiter(nil, RateLimitConfig{Limit: 2, Window: time.Minute}))

	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code)
	w := post(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RateLimited")

	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.2").Code)
}

func TestRateLimiterRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRateLimiter(client, RateLimitConfig{Limit: 1, Window: time.Minute})
	r := limitedRouter(l)
	key := rateLimitKey("/appointments", "10.0.0.1")

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code)

	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectTTL(key).SetVal(42 * time.Second)
	w := post(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))

	mock.ExpectIncr(key).SetErr(context.DeadlineExceeded)
	assert.Equal(t, http.StatusCreated, post(r, "10.0.0.1").Code, "redis failures let requests through")

	mock.ExpectDel(key).SetVal(1)
	require.NoError(t, l.Reset(context.Background(), "10.0.0.1", "/appointments"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	cfg := &config.Config{JWTSecret: "secret", JWTRefreshSecret: "refresh", JWTExpirationMinutes: 5, JWTRefreshExpirationHours: 1}
	resolver := identity.NewResolver(db, cfg.JWTSecret, &identity.SessionRevoker{DB: db})

	r := gin.New()
	r.Use(AuthMiddleware(resolver), SettingsMiddleware())
	r.GET("/me", func(c *gin.Context) {
		p, _ := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"role": p.Role(), "theme": GetSettings(c).Theme})
	})
	r.GET("/admin", RoleAuthMiddleware(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(path, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, request("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request("/me", "not-a-jwt").Code)

	ownerToken, _, err := utils.GenerateTokens(&f.OwnerUser, cfg)
	require.NoError(t, err)
	w := request("/me", ownerToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"pet_owner"`)
	assert.Contains(t, w.Body.String(), `"theme":"light"`)
	assert.Equal(t, http.StatusForbidden, request("/admin", ownerToken).Code)

	adminToken, _, err := utils.GenerateTokens(&f.AdminUser, cfg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, request("/admin", adminToken).Code)

	pending := testutil.CreateUser(t, db, "pending@vetcare.test", models.RoleVeterinarian, false, models.VerificationPending)
	pendingToken, _, err := utils.GenerateTokens(&pending, cfg)
	require.NoError(t, err)
	w = request("/me", pendingToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "under review")
}

func TestSettingsFromProfile(t *testing.T) {
	assert.Equal(t, Settings{Theme: "dark", Locale: "fil"}, SettingsFromProfile(models.Profile{Theme: "dark", Locale: "fil"}))
	assert.Equal(t, DefaultSettings, SettingsFromProfile(models.Profile{Theme: "neon"}))
}
