package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func newTestLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: max,
		window:      window,
		clients:     make(map[string]*clientWindow),
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newTestLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client1"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("client1"), "request 4 should be denied")
}

func TestRateLimiterWindowRecovery(t *testing.T) {
	rl := newTestLimiter(2, 50*time.Millisecond)

	rl.Allow("client1")
	rl.Allow("client1")
	assert.False(t, rl.Allow("client1"), "should be denied after exhausting limit")

	time.Sleep(60 * time.Millisecond)

	assert.True(t, rl.Allow("client1"), "should be allowed after window expiry")
}

func TestRateLimiterClientIsolation(t *testing.T) {
	rl := newTestLimiter(1, time.Second)

	assert.True(t, rl.Allow("client1"))
	assert.False(t, rl.Allow("client1"))
	assert.True(t, rl.Allow("client2"), "independent window")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("client"))
	}
}

func TestRateLimiterEvict(t *testing.T) {
	rl := newTestLimiter(1, time.Second)
	rl.Allow("old")
	rl.clients["old"].lastAccess = time.Now().Add(-10 * time.Minute)
	rl.Allow("fresh")

	rl.evict(time.Now().Add(-5 * time.Minute))
	assert.NotContains(t, rl.clients, "old")
	assert.Contains(t, rl.clients, "fresh")
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := newTestLimiter(1, time.Second)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", gjson.Get(rec.Body.String(), "error").String())

	other := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4321"
	assert.Equal(t, "ip:192.168.1.5", clientKey(req))

	req = req.WithContext(context.WithValue(req.Context(), AuthContextKey, &AuthContext{Subject: "alice", AuthType: "jwt"}))
	assert.Equal(t, "sub:alice", clientKey(req))
}
