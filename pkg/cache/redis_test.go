package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, logrus.New())

	store.Set(ctx, "sig:1", []byte(`{"ok":true}`), 10*time.Second)
	store.Set(ctx, "sig:2", []byte(`{"ok":true}`), time.Hour)

	value, ok := store.Get(ctx, "sig:1")
	assert.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(value))
	assert.Equal(t, 2, store.Len(ctx))
	assert.True(t, server.Exists(KeyPrefix+"sig:1"))

	server.FastForward(10 * time.Second)
	_, ok = store.Get(ctx, "sig:1")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len(ctx))

	store.Delete(ctx, "sig:2")
	_, ok = store.Get(ctx, "sig:2")
	assert.False(t, ok)
}

func TestRedisStoreUnavailableIsAMiss(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	defer client.Close()
	server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store := NewRedisStore(client, logger)

	ctx := context.Background()
	store.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(ctx))
}
