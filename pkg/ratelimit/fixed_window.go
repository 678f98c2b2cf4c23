package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// CounterStore keeps one counter per key for the current window id.
type CounterStore interface {
	// Increment admits one request when the counter for windowID is below
	// limit. A windowID different from the stored one resets the counter
	// first. Rejected requests leave the counter untouched.
	Increment(ctx context.Context, key string, windowID int64, limit int, ttl time.Duration) (count int, admitted bool, err error)
	Reset(ctx context.Context, key string) error
}

type fixedWindow struct {
	store CounterStore
}

// NewFixedWindow identifies windows by floor(now / window).
func NewFixedWindow(store CounterStore) Strategy {
	return &fixedWindow{store: store}
}

func (f *fixedWindow) Take(ctx context.Context, key string, tier Tier, now time.Time) (Decision, error) {
	size := tier.Window.Nanoseconds()
	windowID := now.UnixNano() / size
	resetAt := time.Unix(0, (windowID+1)*size)

	count, admitted, err := f.store.Increment(ctx, key, windowID, tier.Limit, tier.Window)
	if err != nil {
		return Decision{}, err
	}

	remaining := tier.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   admitted,
		Tier:      tier.Name,
		Limit:     tier.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

type window struct {
	id        int64
	count     int
	expiresAt time.Time
}

// MemoryCounterStore is the process-local CounterStore.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   clock.Clock
}

func NewMemoryCounterStore(clk clock.Clock) *MemoryCounterStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryCounterStore{
		windows: make(map[string]*window),
		clock:   clk,
	}
}

func (s *MemoryCounterStore) Increment(_ context.Context, key string, windowID int64, limit int, ttl time.Duration) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || w.id != windowID {
		w = &window{id: windowID, expiresAt: s.clock.Now().Add(ttl)}
		s.windows[key] = w
	}
	if w.count >= limit {
		return w.count, false, nil
	}
	w.count++
	return w.count, true, nil
}

func (s *MemoryCounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Sweep drops counters whose window has passed.
func (s *MemoryCounterStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *MemoryCounterStore) Run(ctx context.Context, every time.Duration) {
	ticker := s.clock.Ticker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
