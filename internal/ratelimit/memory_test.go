package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryLimiter_BlocksAfterLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newMemoryLimiter(3, time.Minute, clock.Now)
	ctx := context.Background()
	key := Keys.Login("10.0.0.1")

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, ok, "attempt %d", i+1)
	}

	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	other, err := l.Allow(ctx, Keys.Login("10.0.0.2"))
	require.NoError(t, err)
	require.True(t, other)

	clock.Advance(time.Minute)

	ok, err = l.Allow(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryLimiter_Reset(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := newMemoryLimiter(1, time.Hour, clock.Now)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "k"))

	ok, _ = l.Allow(ctx, "k")
	require.True(t, ok)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	l := newMemoryLimiter(5, time.Second, clock.Now)

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	clock.Advance(2 * time.Second)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Empty(t, l.entries)
}

func TestMemoryLimiter_CanceledContext(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Allow(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, l.Close())
}

func TestNoOpLimiter(t *testing.T) {
	l := NewNoOpLimiter()
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, l.Reset(context.Background(), "k"))
}
