package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"gitingest-mcp/server/internal/observability"
)

// RateLimiter implements per-client sliding window rate limiting.
// Uses in-memory state; each server instance enforces independently.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	mu          sync.Mutex
	clients     map[string]*clientWindow
}

type clientWindow struct {
	timestamps []time.Time
	lastAccess time.Time
}

// NewRateLimiter creates a rate limiter with the given requests-per-second
// limit. Stale clients are evicted until ctx is done. A limit of zero or
// less disables limiting.
func NewRateLimiter(ctx context.Context, maxPerSecond int) *RateLimiter {
	rl := &RateLimiter{
		maxRequests: maxPerSecond,
		window:      time.Second,
		clients:     make(map[string]*clientWindow),
	}
	if maxPerSecond > 0 {
		go rl.cleanup(ctx, time.Minute, 5*time.Minute)
	}
	return rl
}

// Allow checks if a request from the given client is allowed.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.maxRequests <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[client]
	if !ok {
		cw = &clientWindow{}
		rl.clients[client] = cw
	}

	cutoff := now.Add(-rl.window)
	start := 0
	for start < len(cw.timestamps) && cw.timestamps[start].Before(cutoff) {
		start++
	}
	cw.timestamps = cw.timestamps[start:]
	cw.lastAccess = now

	if len(cw.timestamps) >= rl.maxRequests {
		return false
	}

	cw.timestamps = append(cw.timestamps, now)
	return true
}

func (rl *RateLimiter) cleanup(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(time.Now().Add(-idle))
		}
	}
}

func (rl *RateLimiter) evict(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cw := range rl.clients {
		if cw.lastAccess.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// Middleware returns an HTTP middleware that applies rate limiting.
// Authenticated callers are keyed by subject, others by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.Allow(key) {
			observability.LogSecurityEvent(GetRequestID(r.Context()), "rate_limited", map[string]any{
				"client": key,
			})
			w.Header().Set("Retry-After", "1")
			writeErrorResponse(w, &AuthError{
				Code:    "RATE_LIMIT_EXCEEDED",
				Message: "Too many requests. Please slow down.",
				Status:  http.StatusTooManyRequests,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if authCtx := GetAuthContext(r.Context()); authCtx != nil && authCtx.Subject != "" {
		return "sub:" + authCtx.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
