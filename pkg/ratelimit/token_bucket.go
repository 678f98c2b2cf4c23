package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const defaultMaxBuckets = 10000

type tokenBuckets struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// NewTokenBuckets refills limit tokens per window with a burst of limit.
// At most maxKeys buckets are kept; the least recently used is dropped.
func NewTokenBuckets(maxKeys int) (Strategy, error) {
	if maxKeys <= 0 {
		maxKeys = defaultMaxBuckets
	}
	buckets, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket cache: %w", err)
	}
	return &tokenBuckets{buckets: buckets}, nil
}

func (t *tokenBuckets) bucket(key string, tier Tier) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limiter, ok := t.buckets.Get(key); ok {
		return limiter
	}
	every := rate.Every(tier.Window / time.Duration(tier.Limit))
	limiter := rate.NewLimiter(every, tier.Limit)
	t.buckets.Add(key, limiter)
	return limiter
}

func (t *tokenBuckets) Take(_ context.Context, key string, tier Tier, now time.Time) (Decision, error) {
	limiter := t.bucket(key, tier)
	allowed := limiter.AllowN(now, 1)

	tokens := limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(tier.Limit) - tokens
	resetAt := now.Add(time.Duration(missing * float64(tier.Window) / float64(tier.Limit)))

	return Decision{
		Allowed:   allowed,
		Tier:      tier.Name,
		Limit:     tier.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
