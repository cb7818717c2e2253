package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/yahyalfc/ticket-ledger/internal/adapters/redis"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
)

// RateLimiter is a fixed-window counter over redis.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow increments the window counter for key and reports whether the call
// stays within rate. Redis errors fail closed.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "ticketledger:rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false
	}

	if incr.Val() > int64(rate) {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
