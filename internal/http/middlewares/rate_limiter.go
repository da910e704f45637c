package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-key limiter. Generation calls are the
// expensive resource here, so authenticated routes key by user id while the
// auth endpoints key by client IP.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*windowBucket
}

type windowBucket struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowBucket),
	}
}

// allow records one request for key and reports whether it fits in the
// current window. When it does not, retryAfter says how long until the
// window rolls over.
func (rl *RateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.buckets[key] = &windowBucket{count: 1, resetAt: now.Add(rl.window)}
		rl.pruneLocked(now)

		return true, 0
	}

	if b.count >= rl.limit {
		return false, b.resetAt.Sub(now)
	}

	b.count++

	return true, 0
}

// pruneLocked drops buckets whose window has already passed so the map does
// not grow with every distinct client ever seen. Caller holds rl.mu.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if len(rl.buckets) < 1024 {
		return
	}

	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// RateLimiterMiddleware enforces the limit for the key derived by keyFn.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := keyFn(ctx)
		if key == "" {
			key = clientIP(ctx)
		}

		ok, retryAfter := rl.allow(key, time.Now())
		if !ok {
			seconds := int(retryAfter.Seconds())
			if seconds < 0 {
				seconds = 0
			}

			ctx.Header("Retry-After", strconv.Itoa(seconds))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})

			return
		}

		ctx.Next()
	}
}

// KeyByIP keys unauthenticated endpoints by client address.
func KeyByIP(ctx *gin.Context) string {
	return clientIP(ctx)
}

// KeyByUserOrIP keys by the authenticated user when one is present, falling
// back to the client address.
func KeyByUserOrIP(ctx *gin.Context) string {
	if id, ok := UserIDFromContext(ctx); ok && id != "" {
		return "user:" + id
	}

	return clientIP(ctx)
}

func clientIP(ctx *gin.Context) string {
	ip := ctx.ClientIP()

	// strip the port when one slipped in
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}

	return ip
}
