package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newFixedLimiter(t *testing.T, tiers map[string]Tier, allowlist ...string) (*Limiter, *MemoryCounterStore, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	store := NewMemoryCounterStore(mock)
	strategy, err := NewStrategy(FixedWindow, store, 0)
	require.NoError(t, err)
	return NewLimiter(tiers, allowlist, strategy, mock, quietLogger()), store, mock
}

func TestFixedWindowIntegrity(t *testing.T) {
	ctx := context.Background()
	limiter, store, mock := newFixedLimiter(t, map[string]Tier{
		"test": {Limit: 5, Window: time.Minute},
	})

	for i := 1; i <= 5; i++ {
		d := limiter.Allow(ctx, "test", "10.0.0.1")
		require.True(t, d.Allowed, "request %d should be admitted", i)
		assert.Equal(t, 5-i, d.Remaining)
	}

	for i := 0; i < 3; i++ {
		d := limiter.Allow(ctx, "test", "10.0.0.1")
		assert.False(t, d.Allowed)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, 0, d.Remaining)
	}

	// rejected requests are free
	w := store.windows["test:10.0.0.1"]
	require.NotNil(t, w)
	assert.Equal(t, 5, w.count)

	// other clients have their own window
	assert.True(t, limiter.Allow(ctx, "test", "10.0.0.2").Allowed)

	// next window starts from zero
	mock.Add(time.Minute)
	d := limiter.Allow(ctx, "test", "10.0.0.1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
}

func TestAITierScenario(t *testing.T) {
	ctx := context.Background()
	limiter, _, mock := newFixedLimiter(t, DefaultTiers())

	for i := 1; i <= 10; i++ {
		require.True(t, limiter.Allow(ctx, TierAI, "203.0.113.9").Allowed)
		mock.Add(5 * time.Second)
	}

	d := limiter.Allow(ctx, TierAI, "203.0.113.9")
	assert.False(t, d.Allowed)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, TierAI, d.Tier)
	assert.Equal(t, 10, d.RetryAfter(mock.Now()))

	// the search tier is independent
	assert.True(t, limiter.Allow(ctx, TierSearch, "203.0.113.9").Allowed)
}

func TestAllowlistBypassesLimiting(t *testing.T) {
	ctx := context.Background()
	limiter, store, _ := newFixedLimiter(t, map[string]Tier{
		"test": {Limit: 1, Window: time.Minute},
	}, "127.0.0.1", "::1")

	for i := 0; i < 10; i++ {
		d := limiter.Allow(ctx, "test", "127.0.0.1")
		assert.True(t, d.Allowed)
		assert.True(t, d.Bypassed)
	}
	assert.Empty(t, store.windows)
}

func TestUnknownTierAdmits(t *testing.T) {
	limiter, _, _ := newFixedLimiter(t, DefaultTiers())
	assert.True(t, limiter.Allow(context.Background(), "missing", "10.0.0.1").Allowed)
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, int64, int, time.Duration) (int, bool, error) {
	return 0, false, errors.New("store down")
}

func (failingStore) Reset(context.Context, string) error {
	return errors.New("store down")
}

func TestStoreFailureFailsOpen(t *testing.T) {
	limiter := NewLimiter(map[string]Tier{"test": {Limit: 1, Window: time.Minute}}, nil,
		NewFixedWindow(failingStore{}), clock.NewMock(), quietLogger())

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(context.Background(), "test", "10.0.0.1").Allowed)
	}
}

func TestMemoryCounterStoreSweep(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	store := NewMemoryCounterStore(mock)

	_, _, err := store.Increment(ctx, "a", 0, 10, time.Minute)
	require.NoError(t, err)
	_, _, err = store.Increment(ctx, "b", 0, 10, time.Hour)
	require.NoError(t, err)

	mock.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	require.NoError(t, store.Reset(ctx, "b"))
	assert.Empty(t, store.windows)
}

func TestSlidingWindowHasNoBoundaryBurst(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	mock.Set(time.Unix(0, 0).Add(50 * time.Second))

	strategy, err := NewStrategy(SlidingWindow, nil, 0)
	require.NoError(t, err)
	limiter := NewLimiter(map[string]Tier{"test": {Limit: 3, Window: time.Minute}}, nil, strategy, mock, quietLogger())

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow(ctx, "test", "c").Allowed)
	}

	// crossing a fixed-window boundary does not reset the sliding log
	mock.Add(15 * time.Second)
	d := limiter.Allow(ctx, "test", "c")
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(110), d.ResetAt.Unix())

	mock.Add(45 * time.Second)
	assert.True(t, limiter.Allow(ctx, "test", "c").Allowed)
}

func TestTokenBucket(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()

	strategy, err := NewStrategy(TokenBucket, nil, 16)
	require.NoError(t, err)
	limiter := NewLimiter(map[string]Tier{"test": {Limit: 4, Window: time.Minute}}, nil, strategy, mock, quietLogger())

	for i := 0; i < 4; i++ {
		require.True(t, limiter.Allow(ctx, "test", "c").Allowed)
	}
	assert.False(t, limiter.Allow(ctx, "test", "c").Allowed)

	// one token every 15s
	mock.Add(16 * time.Second)
	assert.True(t, limiter.Allow(ctx, "test", "c").Allowed)
	assert.False(t, limiter.Allow(ctx, "test", "c").Allowed)
}

func TestNewStrategyRejectsUnknownAlgorithm(t *testing.T) {
	_, err := NewStrategy("leaky", nil, 0)
	assert.Error(t, err)

	_, err = NewStrategy(FixedWindow, nil, 0)
	assert.Error(t, err)
}

func TestSlidingWindowSweepDropsIdleKeys(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()

	strategy, err := NewStrategy(SlidingWindow, nil, 0)
	require.NoError(t, err)
	sweeper, ok := strategy.(Sweeper)
	require.True(t, ok)
	limiter := NewLimiter(map[string]Tier{"test": {Limit: 5, Window: time.Minute}}, nil, strategy, mock, quietLogger())

	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow(ctx, "test", fmt.Sprintf("client-%d", i)).Allowed)
	}
	mock.Add(30 * time.Second)
	require.True(t, limiter.Allow(ctx, "test", "late").Allowed)

	// keys still inside their window survive
	assert.Equal(t, 0, sweeper.Sweep(mock.Now()))

	mock.Add(time.Hour)
	assert.Equal(t, 101, sweeper.Sweep(mock.Now()))
	assert.Empty(t, strategy.(*slidingWindow).logs)
}

func TestLimiterRunSkipsStatelessStrategies(t *testing.T) {
	limiter, _, _ := newFixedLimiter(t, DefaultTiers())

	done := make(chan struct{})
	go func() {
		limiter.Run(context.Background(), time.Minute)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return for strategies without a sweep")
	}
}

func TestConcurrentRequestsNeverExceedCeiling(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
	}{
		{"fixed window", FixedWindow},
		{"sliding window", SlidingWindow},
		{"token bucket", TokenBucket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := clock.NewMock()
			strategy, err := NewStrategy(tt.algorithm, NewMemoryCounterStore(mock), 64)
			require.NoError(t, err)
			limiter := NewLimiter(map[string]Tier{"test": {Limit: 50, Window: time.Minute}}, nil, strategy, mock, quietLogger())

			var (
				wg       sync.WaitGroup
				admitted atomic.Int32
			)
			for i := 0; i < 500; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if limiter.Allow(context.Background(), "test", "c").Allowed {
						admitted.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(50), admitted.Load())
		})
	}
}
