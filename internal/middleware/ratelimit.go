package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Limiter decides whether one more request from key fits in the
// current one-minute window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter implements a simple in-memory rate limiter
type MemoryLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     int
	now      func() time.Time
	stop     chan struct{}
}

type visitor struct {
	windowStart time.Time
	count       int
}

func NewMemoryLimiter(rate int) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanupVisitors(time.Minute)

	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists || now.Sub(v.windowStart) >= time.Minute {
		rl.visitors[key] = &visitor{windowStart: now, count: 1}
		return true, nil
	}

	if v.count >= rl.rate {
		return false, nil
	}
	v.count++
	return true, nil
}

// Stop ends the background cleanup.
func (rl *MemoryLimiter) Stop() {
	close(rl.stop)
}

func (rl *MemoryLimiter) cleanupVisitors(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if rl.now().Sub(v.windowStart) > 5*time.Minute {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RedisLimiter shares a fixed one-minute window across instances.
type RedisLimiter struct {
	client *redis.Client
	rate   int
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, rate int) *RedisLimiter {
	return &RedisLimiter{client: client, rate: rate, now: time.Now}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := rl.now().Unix() / 60
	redisKey := fmt.Sprintf("advisor:ratelimit:%s:%d", key, window)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}

	return incr.Val() <= int64(rl.rate), nil
}

// RateLimit rejects requests over the per-client budget with 429. A
// failing limiter store lets the request through.
func RateLimit(limiter Limiter, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimited.Inc()
			utils.AbortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			return
		}

		c.Next()
	}
}
