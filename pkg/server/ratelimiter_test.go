package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	now = now.Add(10 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	assert.Equal(t, 50, rl.RetryAfter("a"))

	now = now.Add(50 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	assert.Equal(t, 0, rl.RetryAfter("unknown"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")

	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.requests, "a")
	assert.Len(t, rl.requests["b"], 1)
}

func TestClientIP(t *testing.T) {
	t.Run("remote address", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/status", nil)
		req.RemoteAddr = "192.168.1.4:5555"
		assert.Equal(t, "192.168.1.4", clientIP(req, false))

		req.RemoteAddr = "[2001:db8::1]:443"
		assert.Equal(t, "2001:db8::1", clientIP(req, false))
	})

	t.Run("forwarded headers ignored by default", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/status", nil)
		req.RemoteAddr = "192.168.1.4:5555"
		req.Header.Set("X-Real-IP", "10.1.1.1")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "192.168.1.4", clientIP(req, false))
	})

	t.Run("trusted proxy", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/status", nil)
		req.RemoteAddr = "192.168.1.4:5555"
		req.Header.Set("X-Real-IP", "10.1.1.1")
		assert.Equal(t, "10.1.1.1", clientIP(req, true))

		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", clientIP(req, true))
	})
}
