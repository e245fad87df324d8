package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/headlineagentur/webportal/internal/common"
)

// RateLimit throttles requests per client IP with a token bucket: up to
// burst requests immediately, then one more per interval. Buckets idle for
// half an hour are pruned in passing so the map stays bounded.
func RateLimit(interval time.Duration, burst int) gin.HandlerFunc {
	type bucket struct {
		lim      *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
		swept   = time.Now()
	)
	return func(c *gin.Context) {
		now := time.Now()
		ip := c.ClientIP()

		mu.Lock()
		if now.Sub(swept) > 10*time.Minute {
			for key, b := range buckets {
				if now.Sub(b.lastSeen) > 30*time.Minute {
					delete(buckets, key)
				}
			}
			swept = now
		}
		b, ok := buckets[ip]
		if !ok {
			b = &bucket{lim: rate.NewLimiter(rate.Every(interval), burst)}
			buckets[ip] = b
		}
		b.lastSeen = now
		mu.Unlock()

		if !b.lim.Allow() {
			common.Fail(c, http.StatusTooManyRequests, 42900, "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
