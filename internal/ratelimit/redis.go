package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisWindowTTL keeps counter keys alive just past their one-second window.
const redisWindowTTL = 2 * time.Second

// RedisLimiter is a fixed-window per-second limiter shared across instances
// through Redis. Each window is one counter key expiring shortly after the
// window closes.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow increments the window counter and compares it to the limit. The
// increment and the expiry are pipelined so a crashed call cannot leave an
// immortal counter behind.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if l == nil || l.client == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	counterKey := key + ":" + strconv.FormatInt(sec, 10)
	if l.prefix != "" {
		counterKey = l.prefix + ":" + counterKey
	}

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, redisWindowTTL)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		return Result{}, errExec
	}

	count := incr.Val()
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: reset}, nil
}
