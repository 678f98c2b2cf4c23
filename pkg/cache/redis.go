package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/types"
)

const KeyPrefix = "gateway:cache:"

// RedisStore keeps entries in Redis; expiry is delegated to the server.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisClient connects and pings the configured server.
func NewRedisClient(ctx context.Context, config types.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).Warn("Cache lookup failed")
		}
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := s.client.Set(ctx, KeyPrefix+key, value, ttl).Err(); err != nil {
		s.logger.WithError(err).Warn("Cache store failed")
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, KeyPrefix+key).Err(); err != nil {
		s.logger.WithError(err).Warn("Cache delete failed")
	}
}

func (s *RedisStore) Len(ctx context.Context) int {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, KeyPrefix+"*", 500).Result()
		if err != nil {
			s.logger.WithError(err).Warn("Cache scan failed")
			return count
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count
		}
	}
}
