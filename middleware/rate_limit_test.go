package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiterAllowsUpToMax(t *testing.T) {
	limiter := NewFixedWindowLimiter(time.Second, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"), "request %d should pass", i+1)
	}
	assert.False(t, limiter.Allow("1.2.3.4"), "request 11 must be rejected")
	assert.False(t, limiter.Allow("1.2.3.4"))
}

func TestFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewFixedWindowLimiter(40*time.Millisecond, 2)

	assert.True(t, limiter.Allow("c"))
	assert.True(t, limiter.Allow("c"))
	assert.False(t, limiter.Allow("c"))

	time.Sleep(60 * time.Millisecond)

	assert.True(t, limiter.Allow("c"), "a lapsed window starts a fresh budget")
	assert.True(t, limiter.Allow("c"))
	assert.False(t, limiter.Allow("c"))
}

func TestFixedWindowLimiterIsolatesClients(t *testing.T) {
	limiter := NewFixedWindowLimiter(time.Second, 1)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "one client hitting the limit must not affect another")
}

func TestFixedWindowLimiterNormalizesMax(t *testing.T) {
	limiter := NewFixedWindowLimiter(time.Second, 0)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(NewFixedWindowLimiter(time.Second, 2)), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"pong": true})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body.Error)
}
