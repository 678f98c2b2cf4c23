package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"travel-gateway/pkg/types"
)

// TTLMap is the in-process Store. Entries expire lazily on Get and are
// removed from memory by Sweep.
type TTLMap struct {
	mu    sync.RWMutex
	data  map[string]*types.CacheEntry
	clock clock.Clock
}

func NewTTLMap(clk clock.Clock) *TTLMap {
	if clk == nil {
		clk = clock.New()
	}
	return &TTLMap{
		data:  make(map[string]*types.CacheEntry),
		clock: clk,
	}
}

func (m *TTLMap) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.data[key]
	if !exists || entry.Expired(m.clock.Now()) {
		return nil, false
	}
	return entry.Value, true
}

func (m *TTLMap) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = &types.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: m.clock.Now().Add(ttl),
	}
}

func (m *TTLMap) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Len counts live entries only.
func (m *TTLMap) Len(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	n := 0
	for _, entry := range m.data {
		if !entry.Expired(now) {
			n++
		}
	}
	return n
}

// Sweep removes expired entries and returns how many were dropped.
func (m *TTLMap) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for key, entry := range m.data {
		if entry.Expired(now) {
			delete(m.data, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *TTLMap) Run(ctx context.Context, every time.Duration) {
	ticker := m.clock.Ticker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
