package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// counter tracks requests from one client inside the current fixed window.
type counter struct {
	count       int
	windowStart time.Time
}

// FixedWindowLimiter bounds request rate per client id using discrete,
// non-overlapping windows. Bursts straddling a window boundary can reach up
// to twice the limit; that is an accepted tradeoff for O(1) state per client,
// and the guarded endpoint sits behind its own authorization check anyway.
type FixedWindowLimiter struct {
	window time.Duration
	max    int

	mu        sync.Mutex
	counters  map[string]*counter
	lastSweep time.Time
}

// NewFixedWindowLimiter creates a limiter allowing max requests per window.
func NewFixedWindowLimiter(window time.Duration, max int) *FixedWindowLimiter {
	if max < 1 {
		max = 1
	}
	return &FixedWindowLimiter{
		window:    window,
		max:       max,
		counters:  make(map[string]*counter),
		lastSweep: time.Now(),
	}
}

// Allow records a request from clientID and reports whether it fits in the
// current window.
func (l *FixedWindowLimiter) Allow(clientID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	c, ok := l.counters[clientID]
	if !ok || now.Sub(c.windowStart) > l.window {
		l.counters[clientID] = &counter{count: 1, windowStart: now}
		return true
	}
	if c.count < l.max {
		c.count++
		return true
	}
	return false
}

// sweepLocked drops counters whose window lapsed long ago so the map does not
// grow with client-id cardinality over the process lifetime.
func (l *FixedWindowLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < 10*l.window {
		return
	}
	l.lastSweep = now
	for key, c := range l.counters {
		if now.Sub(c.windowStart) > l.window {
			delete(l.counters, key)
		}
	}
}

// RateLimit wraps a limiter into a gin middleware keyed by client IP. The 429
// body uses the flat error shape expected by the playback backend.
func RateLimit(limiter *FixedWindowLimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.Allow(ctx.ClientIP()) {
			ctx.AbortWithStatusJSON(429, gin.H{"error": "rate limit exceeded"})
			return
		}
		ctx.Next()
	}
}
