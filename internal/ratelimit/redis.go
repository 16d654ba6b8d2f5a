package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter with Redis counters shared by every
// panel instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit attempts per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow increments the counter for key and starts its window on first use.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	if count == 1 {
		if err := l.client.PExpire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	return count <= int64(l.limit), nil
}

// Reset clears the attempts recorded for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}

// Ensure RedisLimiter implements Limiter.
var _ Limiter = (*RedisLimiter)(nil)
