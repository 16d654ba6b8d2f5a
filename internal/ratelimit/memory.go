package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements Limiter using in-process counters.
// Counters are NOT shared across process restarts or multiple instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// windowEntry is the attempt count of one key in its current window.
type windowEntry struct {
	count     int
	expiresAt time.Time
}

// NewMemoryLimiter creates a limiter allowing limit attempts per window.
// It starts a background goroutine that drops expired windows; call Close
// to stop it.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	ml := newMemoryLimiter(limit, window, time.Now)
	go ml.cleanupLoop()
	return ml
}

func newMemoryLimiter(limit int, window time.Duration, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*windowEntry),
		limit:   limit,
		window:  window,
		now:     now,
		stop:    make(chan struct{}),
	}
}

// cleanupLoop periodically removes expired windows.
func (m *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup removes expired windows.
func (m *MemoryLimiter) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}

// Allow records an attempt and reports whether it is within the budget.
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, exists := m.entries[key]
	if !exists || !now.Before(entry.expiresAt) {
		entry = &windowEntry{expiresAt: now.Add(m.window)}
		m.entries[key] = entry
	}

	entry.count++
	return entry.count <= m.limit, nil
}

// Reset clears the attempts recorded for key.
func (m *MemoryLimiter) Reset(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryLimiter) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// Ensure MemoryLimiter implements Limiter.
var _ Limiter = (*MemoryLimiter)(nil)
