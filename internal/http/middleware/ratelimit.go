package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitorStaleAfter is how long an idle client keeps its token bucket.
// Longer than any OTP resend interval so retries count against the
// same bucket.
const visitorStaleAfter = 5 * time.Minute

// RateLimiter throttles callers by client IP. The auth endpoints are
// unauthenticated, so the IP is the only stable key available before
// a device proves itself.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a per-IP limiter from a requests-per-minute cap.
// A cap of zero or less disables limiting and returns nil, which Handler
// treats as a pass-through.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

// Handler rejects over-limit requests with 429 in the same error envelope
// the auth endpoints use, so clients parse one shape everywhere.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !r.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"error_description": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	v, ok := r.visitors[key]
	if !ok {
		r.evictStaleLocked(now)
		v = &visitor{bucket: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = now
	bucket := v.bucket
	r.mu.Unlock()

	return bucket.Allow()
}

func (r *RateLimiter) evictStaleLocked(now time.Time) {
	for key, v := range r.visitors {
		if now.Sub(v.lastSeen) > visitorStaleAfter {
			delete(r.visitors, key)
		}
	}
}
