package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// limiterIdle is how long an unused client limiter is kept.
const limiterIdle = 10 * time.Minute

// limiterStore hands out one token bucket per client key. Idle buckets expire.
type limiterStore struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

// newLimiterStore allows perMinute requests per key with the given burst.
func newLimiterStore(perMinute, burst int) *limiterStore {
	if perMinute <= 0 {
		perMinute = 120
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterStore{
		limiters: cache.New(limiterIdle, 2*limiterIdle),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters.Get(key); ok {
		s.limiters.Set(key, l, cache.DefaultExpiration)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(s.limit, s.burst)
	s.limiters.Set(key, l, cache.DefaultExpiration)
	return l
}

// RateLimit rejects clients that exceed their bucket with 429.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	store := newLimiterStore(perMinute, burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !store.get(ip).Allow() {
			logx.Warn().Str("ip", ip).Str("path", c.FullPath()).Msg("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Error: "rate limit exceeded, try again later",
				Kind:  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
