package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedEventCache_MarkAndCheck(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewProcessedEventCache(client)
	ctx := context.Background()

	key := "0b5e1a52-5f0c-4f43-9d3c-2b7a51d0e8f1"

	processed, err := cache.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, cache.MarkProcessed(ctx, key, time.Hour))

	processed, err = cache.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.True(t, s.Exists("gateway:processed:"+key))
}

func TestProcessedEventCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewProcessedEventCache(client)
	ctx := context.Background()

	require.NoError(t, cache.MarkProcessed(ctx, "tx-1", time.Second))

	s.FastForward(2 * time.Second)

	processed, err := cache.IsProcessed(ctx, "tx-1")
	assert.NoError(t, err)
	assert.False(t, processed, "expired key should read as unprocessed")
}

func TestProcessedEventCache_ConnectionError(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewProcessedEventCache(client)
	s.Close()

	_, err := cache.IsProcessed(context.Background(), "tx-1")
	assert.Error(t, err)
}
