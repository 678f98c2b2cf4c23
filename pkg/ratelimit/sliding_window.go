package ratelimit

import (
	"context"
	"sync"
	"time"
)

type requestLog struct {
	times  []time.Time
	window time.Duration
}

type slidingWindow struct {
	mu   sync.Mutex
	logs map[string]*requestLog
}

// NewSlidingWindow keeps a log of admitted request times per key, so the
// ceiling holds over any interval of one window length. Idle keys are only
// released by Sweep.
func NewSlidingWindow() Strategy {
	return &slidingWindow{logs: make(map[string]*requestLog)}
}

func (s *slidingWindow) Take(_ context.Context, key string, tier Tier, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.logs[key]
	if !ok {
		entry = &requestLog{}
		s.logs[key] = entry
	}
	entry.window = tier.Window
	entry.trim(now)

	decision := Decision{Tier: tier.Name, Limit: tier.Limit}
	if len(entry.times) >= tier.Limit {
		decision.ResetAt = entry.times[0].Add(tier.Window)
		return decision, nil
	}

	entry.times = append(entry.times, now)
	decision.Allowed = true
	decision.Remaining = tier.Limit - len(entry.times)
	decision.ResetAt = entry.times[0].Add(tier.Window)
	return decision, nil
}

func (l *requestLog) trim(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.times) && !l.times[i].After(cutoff) {
		i++
	}
	l.times = l.times[i:]
}

// Sweep drops keys with no request inside their window.
func (s *slidingWindow) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.logs {
		entry.trim(now)
		if len(entry.times) == 0 {
			delete(s.logs, key)
			removed++
		}
	}
	return removed
}
