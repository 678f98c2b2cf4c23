package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/metrics"
	"travel-gateway/pkg/types"
)

// Default TTLs per route family
const (
	PlacesTTL          = 600 * time.Second
	WeatherTTL         = 600 * time.Second
	RecommendationsTTL = 900 * time.Second
)

// Store is a key/value store with per-insertion TTL. Get must never return
// an entry whose expiry has passed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Len(ctx context.Context) int
}

// Cache holds successful response bodies keyed by request signature.
type Cache struct {
	store  Store
	logger *logrus.Logger
}

func NewCache(store Store, logger *logrus.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := c.store.Get(ctx, key)
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return value, ok
}

// Set stores body only when it is a JSON object carrying "ok": true.
// It reports whether the body was stored.
func (c *Cache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) bool {
	if !Successful(body) {
		c.logger.WithField("key", key).Debug("Skipping cache for unsuccessful response")
		return false
	}
	c.store.Set(ctx, key, body, ttl)
	metrics.CacheStores.Inc()
	return true
}

func (c *Cache) Delete(ctx context.Context, key string) {
	c.store.Delete(ctx, key)
}

func (c *Cache) Stats(ctx context.Context) types.CacheStats {
	return types.CacheStats{Keys: c.store.Len(ctx)}
}

// Successful reports whether body is a complete JSON object with "ok": true.
func Successful(body []byte) bool {
	var envelope struct {
		OK *bool `json:"ok"`
	}
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.OK != nil && *envelope.OK
}
