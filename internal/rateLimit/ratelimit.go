package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/studio-bookings/internal/adapters/redis"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	redis  *redisadapter.Cache
	logger observability.Logger
}

func NewRateLimiter(redis *redisadapter.Cache, logger observability.Logger) *RateLimiter {
	return &RateLimiter{redis: redis, logger: logger}
}

// Allow fails open: when Redis is unreachable the request is let through
// and the error is logged.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		rl.logger.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
		return true
	}

	return incr.Val() <= int64(rate)
}
