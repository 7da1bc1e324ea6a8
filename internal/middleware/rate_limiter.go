package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleTTL is how long a client limiter survives without requests.
const idleTTL = 10 * time.Minute

// RateLimiterConfig configures rate limiting behavior
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterMap stores rate limiters per client IP
type rateLimiterMap struct {
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	config   RateLimiterConfig
	now      func() time.Time
}

func newRateLimiterMap(config RateLimiterConfig) *rateLimiterMap {
	return &rateLimiterMap{
		limiters: make(map[string]*clientLimiter),
		config:   config,
		now:      time.Now,
	}
}

// getLimiter returns or creates the limiter of ip and evicts idle ones
func (rl *rateLimiterMap) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.limiters[ip] = cl
		rl.evictLocked(now)
	}
	cl.lastSeen = now
	return cl.limiter
}

func (rl *rateLimiterMap) evictLocked(now time.Time) {
	for ip, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > idleTTL {
			delete(rl.limiters, ip)
		}
	}
}

// RateLimiterMiddleware rejects requests above the configured rate per
// client IP with 429 and a retry_after hint in seconds.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	return newRateLimiterMap(config).handler()
}

func (rl *rateLimiterMap) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getLimiter(c.ClientIP())

		now := rl.now()
		reservation := limiter.ReserveN(now, 1)
		if !reservation.OK() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded."})
			return
		}
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			c.Header("Retry-After", formatSeconds(delay))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": delay.Seconds(),
			})
			return
		}

		c.Next()
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
