package ratelimit

import (
	"context"
)

// NoOpLimiter is a limiter that allows every attempt.
// Use this when throttling is disabled.
type NoOpLimiter struct{}

// NewNoOpLimiter creates a new no-op limiter.
func NewNoOpLimiter() *NoOpLimiter {
	return &NoOpLimiter{}
}

// Allow always returns true.
func (n *NoOpLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, ctx.Err()
}

// Reset does nothing.
func (n *NoOpLimiter) Reset(ctx context.Context, key string) error {
	return ctx.Err()
}

// Ensure NoOpLimiter implements Limiter.
var _ Limiter = (*NoOpLimiter)(nil)
