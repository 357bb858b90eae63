package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/config"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one token bucket per client IP and forgets clients
// that have been idle for limiterIdleTTL.
type limiterStore struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	return &limiterStore{
		clients:   make(map[string]*clientLimiter),
		limit:     rate.Limit(cfg.RequestsPerSecond),
		burst:     cfg.BurstSize,
		lastSweep: time.Now(),
	}
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, cl := range s.clients {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(s.clients, k)
			}
		}
		s.lastSweep = now
	}

	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func RateLimit(cfg config.RateLimitConfig, m *metrics.Collector) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	store := newLimiterStore(cfg)

	return func(c *gin.Context) {
		now := time.Now()
		limiter := store.get(c.ClientIP(), now)
		if !limiter.AllowN(now, 1) {
			retry := math.Ceil(1 / float64(limiter.Limit()))
			c.Header("Retry-After", strconv.Itoa(int(math.Max(retry, 1))))
			m.RateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
