//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/cache"
	"github.com/dmitrymomot/dataguard/pkg/redis"
)

const testRedisURL = "redis://localhost:6379/0"

func newTestRedisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = testRedisURL
	}

	client, err := redis.Open(context.Background(), redis.Config{URL: url, RetryAttempts: 1})
	require.NoError(t, err, "failed to connect to Redis")
	t.Cleanup(func() { _ = client.Close() })

	return client
}

type snapshot struct {
	Slug string `json:"slug"`
	Seq  int    `json:"seq"`
}

func TestRedis(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		c := cache.NewRedis[snapshot](newTestRedisClient(t), nil, cache.WithPrefix("test-roundtrip"))
		ctx := context.Background()
		t.Cleanup(func() { _ = c.Clear(context.Background()) })

		_, err := c.Get(ctx, "acme")
		require.ErrorIs(t, err, cache.ErrNotFound)

		require.NoError(t, c.Set(ctx, "acme", snapshot{Slug: "acme", Seq: 1}, time.Minute))

		got, err := c.Get(ctx, "acme")
		require.NoError(t, err)
		require.Equal(t, snapshot{Slug: "acme", Seq: 1}, got)

		has, err := c.Has(ctx, "acme")
		require.NoError(t, err)
		require.True(t, has)

		require.NoError(t, c.Delete(ctx, "acme"))
		has, err = c.Has(ctx, "acme")
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		t.Parallel()

		c := cache.NewRedis[string](newTestRedisClient(t), nil, cache.WithPrefix("test-ttl"))
		ctx := context.Background()

		require.NoError(t, c.Set(ctx, "k", "v", 100*time.Millisecond))
		require.Eventually(t, func() bool {
			_, err := c.Get(ctx, "k")
			return err != nil
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("clear only removes prefixed keys", func(t *testing.T) {
		t.Parallel()

		client := newTestRedisClient(t)
		a := cache.NewRedis[int](client, nil, cache.WithPrefix("test-clear-a"), cache.WithScanCount(2))
		b := cache.NewRedis[int](client, nil, cache.WithPrefix("test-clear-b"))
		ctx := context.Background()
		t.Cleanup(func() { _ = b.Clear(context.Background()) })

		for i, k := range []string{"1", "2", "3", "4", "5"} {
			require.NoError(t, a.Set(ctx, k, i, time.Minute))
		}
		require.NoError(t, b.Set(ctx, "1", 1, time.Minute))

		require.NoError(t, a.Clear(ctx))

		has, err := a.Has(ctx, "3")
		require.NoError(t, err)
		require.False(t, has)

		has, err = b.Has(ctx, "1")
		require.NoError(t, err)
		require.True(t, has)
	})
}
