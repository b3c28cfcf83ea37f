// ratelimit.go provides Gin middleware that enforces per-client rate limits, returning
// 429 responses once a client exceeds its requests-per-minute budget. Two backends
// exist: an in-process token bucket for single-replica deployments and redis_rate
// (GCRA over redis) when redis is configured and limits must hold across replicas.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/keydash/dashboard/internal/safego"
	"github.com/keydash/dashboard/internal/telemetry"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate allowed per client
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often idle in-memory buckets are dropped
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		BurstSize:         30, // a dashboard page fires several procedures at once
		CleanupInterval:   5 * time.Minute,
	}
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Backend names the implementation for metrics ("memory", "redis").
	Backend() string
}

// ---------------------------------------------------------------------------
// In-memory token bucket
// ---------------------------------------------------------------------------

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// MemoryLimiter is a token bucket limiter local to this process.
type MemoryLimiter struct {
	config   RateLimitConfig
	buckets  map[string]*bucket
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewMemoryLimiter creates a limiter and starts its cleanup goroutine. Call Stop on shutdown.
func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimitConfig().CleanupInterval
	}
	rl := &MemoryLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	safego.Go("ratelimit-cleanup", rl.cleanup)
	return rl
}

func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, b := range rl.buckets {
				if now.Sub(b.lastUpdate) > 10*time.Minute {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *MemoryLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Backend implements Limiter.
func (rl *MemoryLimiter) Backend() string { return "memory" }

// Allow implements Limiter. It never returns an error.
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	burst := float64(rl.config.BurstSize)
	perSecond := float64(rl.config.RequestsPerMinute) / 60.0

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: burst, lastUpdate: now}
		rl.buckets[key] = b
	} else {
		b.tokens = math.Min(burst, b.tokens+now.Sub(b.lastUpdate).Seconds()*perSecond)
		b.lastUpdate = now
	}

	d := Decision{Limit: rl.config.RequestsPerMinute}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	} else if perSecond > 0 {
		d.RetryAfter = time.Duration((1 - b.tokens) / perSecond * float64(time.Second))
	} else {
		d.RetryAfter = time.Minute
	}
	d.Remaining = int(b.tokens)
	return d, nil
}

// ---------------------------------------------------------------------------
// Redis (redis_rate)
// ---------------------------------------------------------------------------

// rateAllower is the subset of *redis_rate.Limiter used by RedisLimiter.
type rateAllower interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RedisLimiter shares rate limit state across replicas through redis.
type RedisLimiter struct {
	limiter rateAllower
	limit   redis_rate.Limit
}

// NewRedisLimiter returns a limiter backed by rdb.
func NewRedisLimiter(rdb *redis.Client, config RateLimitConfig) *RedisLimiter {
	return newRedisLimiter(redis_rate.NewLimiter(rdb), config)
}

func newRedisLimiter(l rateAllower, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		limiter: l,
		limit: redis_rate.Limit{
			Rate:   config.RequestsPerMinute,
			Burst:  config.BurstSize,
			Period: time.Minute,
		},
	}
}

// Backend implements Limiter.
func (rl *RedisLimiter) Backend() string { return "redis" }

// Allow implements Limiter.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := rl.limiter.Allow(ctx, "keydash:ratelimit:"+key, rl.limit)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// RateLimitMiddleware rejects requests over the limit with 429. Limiter errors
// (for example redis being unreachable) are logged and the request is let through.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "rate limiter unavailable; allowing request",
				"backend", limiter.Backend(), "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			telemetry.RateLimitRejectionsTotal.WithLabelValues(limiter.Backend()).Inc()
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "TOO_MANY_REQUESTS",
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		c.Next()
	}
}

// rateLimitKey prefers the authenticated user and falls back to the client IP.
func rateLimitKey(c *gin.Context) string {
	if userID := c.GetString(UserIDKey); userID != "" {
		return "user:" + userID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
