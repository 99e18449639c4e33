package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub-kr/entitlement-engine/internal/config"
)

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGetSessionFlags(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	expected := SessionFlags{Tier: "SUBSCRIBER", Subscriber: true, IsTrial: false}
	require.NoError(t, cache.SetSessionFlags(ctx, "tok-1", expected))

	actual, found, err := cache.GetSessionFlags(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetSessionFlags_NotFound(t *testing.T) {
	cache := setupTestCache(t)

	_, found, err := cache.GetSessionFlags(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetSessionFlags_Overwrite(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSessionFlags(ctx, "tok-1", SessionFlags{Tier: "TRIAL", IsTrial: true}))
	require.NoError(t, cache.SetSessionFlags(ctx, "tok-1", SessionFlags{Tier: "PREMIUM", Subscriber: true}))

	actual, found, err := cache.GetSessionFlags(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "PREMIUM", actual.Tier)
	assert.True(t, actual.Subscriber)
	assert.False(t, actual.IsTrial)
}

func TestDropSessionFlags(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSessionFlags(ctx, "tok-1", SessionFlags{Tier: "FREE"}))
	require.NoError(t, cache.DropSessionFlags(ctx, "tok-1"))

	_, found, err := cache.GetSessionFlags(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)
}
