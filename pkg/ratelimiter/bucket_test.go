package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/waypoint/pkg/ratelimiter"
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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ratelimiter.Config
		ok   bool
	}{
		{name: "valid", cfg: ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Second}, ok: true},
		{name: "zero capacity", cfg: ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}},
		{name: "zero rate", cfg: ratelimiter.Config{Capacity: 10, RefillInterval: time.Second}},
		{name: "zero interval", cfg: ratelimiter.Config{Capacity: 10, RefillRate: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func TestBucketAllow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newClock()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now))
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       3,
		RefillRate:     3,
		RefillInterval: time.Minute,
	})
	require.NoError(t, err)

	for i := 2; i >= 0; i-- {
		res, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
		assert.Zero(t, res.RetryAfter())
	}

	denied, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, denied.Allowed())
	assert.Equal(t, clock.Now().Add(time.Minute), denied.ResetAt)

	other, err := limiter.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, other.Allowed(), "keys have separate buckets")

	clock.Advance(time.Minute)
	res, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 2, res.Remaining, "denied requests consume nothing")

	require.NoError(t, limiter.Reset(ctx, "client"))
	res, err = limiter.AllowN(ctx, "client", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)
}

func TestBucketInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewBucket(nil, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)

	_, err = limiter.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	_, err = limiter.AllowN(context.Background(), "k", 3)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestMemoryStoreConcurrentConsumption(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()
	cfg := ratelimiter.Config{Capacity: 50, RefillRate: 1, RefillInterval: time.Hour}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remaining, _, err := store.ConsumeTokens(context.Background(), "shared", 1, cfg)
			assert.NoError(t, err)
			if remaining >= 0 {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestMemoryStoreCleanup(t *testing.T) {
	t.Parallel()

	clock := newClock()
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithClock(clock.Now),
		ratelimiter.WithCleanupInterval(5*time.Millisecond),
	)
	cfg := ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}

	_, _, err := store.ConsumeTokens(context.Background(), "stale", 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Stats().ActiveBuckets)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx)() }()

	require.Eventually(t, func() bool { return store.Stats().IsRunning }, time.Second, time.Millisecond)
	assert.ErrorIs(t, store.Start(ctx), ratelimiter.ErrAlreadyStarted)

	clock.Advance(2 * time.Hour)
	require.Eventually(t, func() bool { return store.Stats().ActiveBuckets == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(1), store.Stats().BucketsRemoved)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, store.Stats().IsRunning)
	assert.ErrorIs(t, store.Stop(), ratelimiter.ErrNotStarted)
}

func TestMemoryStoreCleanupDisabled(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	assert.ErrorIs(t, store.Start(context.Background()), ratelimiter.ErrCleanupDisabled)
}
