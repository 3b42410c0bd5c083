package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcare-server/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  *apperr.Error
		want int
	}{
		{apperr.ErrSlotTaken, http.StatusBadRequest},
		{apperr.ErrDailyLimitExceeded, http.StatusBadRequest},
		{apperr.ErrRemarksRequired, http.StatusBadRequest},
		{apperr.ErrUnauthenticated, http.StatusUnauthorized},
		{apperr.ErrAccountInactive, http.StatusForbidden},
		{apperr.ErrUnauthorized, http.StatusForbidden},
		{apperr.ErrProfileNotFound, http.StatusNotFound},
		{apperr.ErrAlreadyReviewed, http.StatusConflict},
		{apperr.New(apperr.KindRateLimited, apperr.CodeRateLimited, ""), http.StatusTooManyRequests},
		{apperr.ErrSaveTimeout, http.StatusGatewayTimeout},
		{apperr.Internal("x", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Code)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondError(c, apperr.ErrSlotTaken)

	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeSlotTaken, body.Code)
	assert.Equal(t, apperr.ErrSlotTaken.Message, body.Error)
}

func TestBindAndValidate(t *testing.T) {
	UseJSONFieldNames()
	type request struct {
		Email  string `json:"email" binding:"required,email"`
		Rating int    `json:"rating" binding:"required,min=1,max=5"`
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","rating":9}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req request
	assert.False(t, BindAndValidate(c, &req))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email must be a valid email")
	assert.Contains(t, w.Body.String(), "rating must be at most 5")
}

func TestGetPagination(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)
	p := GetPagination(c)
	assert.Equal(t, Pagination{Page: 3, Limit: 100}, p)
	assert.Equal(t, 200, p.Offset())

	// gin caches parsed query values per context
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-1&limit=abc", nil)
	assert.Equal(t, Pagination{Page: 1, Limit: 10}, GetPagination(c))
}
