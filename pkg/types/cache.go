package types

import (
	"time"
)

// CacheEntry is a stored response body with its expiry
type CacheEntry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry must no longer be served at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// CacheStats is reported on the health endpoint
type CacheStats struct {
	Keys int `json:"keys"`
}

// CacheConfig holds Redis configuration
type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}
