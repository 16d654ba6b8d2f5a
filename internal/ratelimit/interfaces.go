// Package ratelimit provides attempt counting for login throttling.
// For single-node deployments, memory-based counters are used.
// For distributed deployments, Redis-based counters can be used.
package ratelimit

import (
	"context"
)

// Limiter counts attempts per key within a fixed window.
// This abstraction allows switching between in-memory counters (single-node)
// and Redis-based counters (distributed) without changing handler logic.
type Limiter interface {
	// Allow records one attempt for key and reports whether it is still
	// within the budget for the current window.
	Allow(ctx context.Context, key string) (bool, error)

	// Reset clears the attempts recorded for key.
	Reset(ctx context.Context, key string) error
}

// =============================================================================
// Common Keys
// =============================================================================

// Keys provides key generation for common scenarios.
var Keys = limiterKeys{}

type limiterKeys struct{}

// Login returns the key that throttles login attempts from one client address.
func (limiterKeys) Login(clientIP string) string {
	return "ratelimit:login:" + clientIP
}
