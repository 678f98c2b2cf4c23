package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Check and increment in one round trip so rejected requests are never counted.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {current, 1}
`)

// RedisCounterStore keeps one key per (client, window); expired windows are
// removed by Redis.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func windowKey(key string, windowID int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, windowID)
}

func (s *RedisCounterStore) Increment(ctx context.Context, key string, windowID int64, limit int, ttl time.Duration) (int, bool, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{windowKey(key, windowID)}, limit, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return 0, false, fmt.Errorf("unexpected rate limit script result: %v", res)
	}
	count, ok1 := values[0].(int64)
	admitted, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, false, fmt.Errorf("unexpected rate limit script result: %v", res)
	}
	return int(count), admitted == 1, nil
}

func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("ratelimit:%s:*", key), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to reset rate limit counter: %w", err)
		}
	}
	return iter.Err()
}
