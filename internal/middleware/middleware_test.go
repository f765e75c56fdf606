package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIPRateLimiter_Reserve(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	ok, _ := limiter.Reserve("10.0.0.1")
	assert.True(t, ok)
	ok, _ = limiter.Reserve("10.0.0.1")
	assert.True(t, ok)

	ok, wait := limiter.Reserve("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, 30.0, wait.Seconds(), 1)

	ok, _ = limiter.Reserve("10.0.0.2")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(31 * time.Second)
	ok, _ = limiter.Reserve("10.0.0.1")
	assert.True(t, ok)
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(5, time.Minute)
	limiter.now = func() time.Time { return now }

	limiter.Reserve("10.0.0.1")
	now = now.Add(2 * time.Minute)
	limiter.Reserve("10.0.0.2")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, limiter.Cleanup())
	assert.Len(t, limiter.visitors, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.POST("/otp", RateLimit(NewIPRateLimiter(1, time.Hour)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/otp", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/otp", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (*auth.Identity, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	subject, ok := s[token]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return &auth.Identity{Subject: subject}, nil
}

func TestStudentAuth(t *testing.T) {
	router := gin.New()
	router.GET("/me", StudentAuth(stubVerifier{"good-token": "student-7"}), func(c *gin.Context) {
		c.String(http.StatusOK, StudentID(c))
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, "student-7"},
		{"scheme is case insensitive", "bearer good-token", http.StatusOK, "student-7"},
		{"missing header", "", http.StatusUnauthorized, "Authorization token required"},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized, "Authorization token required"},
		{"unknown token", "Bearer forged", http.StatusUnauthorized, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestStudentAuthDisabled(t *testing.T) {
	router := gin.New()
	router.GET("/me", StudentAuth(nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
