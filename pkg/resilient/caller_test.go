package resilient_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
	"github.com/dmitrymomot/dataguard/pkg/cache"
	"github.com/dmitrymomot/dataguard/pkg/resilient"
)

var (
	errDown    = errors.New("dependency down")
	errMissing = errors.New("missing")
)

func TestCaller_Call(t *testing.T) {
	t.Parallel()

	t.Run("returns value on success", func(t *testing.T) {
		t.Parallel()

		c := resilient.New[int](nil, nil)

		v, err := c.Call(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
		require.NoError(t, err)
		require.Equal(t, 7, v)
		require.Equal(t, uint64(1), c.Stats().Calls)
	})

	t.Run("retries failures up to max attempts", func(t *testing.T) {
		t.Parallel()

		c := resilient.New[int](breaker.New(breaker.Config{FailureThreshold: 10}), nil,
			resilient.WithRetry(resilient.RetryPolicy{MaxAttempts: 3, Strategy: resilient.Fixed, BaseDelay: time.Millisecond}),
		)

		var calls atomic.Int32
		_, err := c.Call(context.Background(), "", func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errDown
		})
		require.ErrorIs(t, err, errDown)
		require.Equal(t, int32(3), calls.Load())
		require.Equal(t, uint64(2), c.Stats().Retries)
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		t.Parallel()

		c := resilient.New[string](nil, nil,
			resilient.WithRetry(resilient.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}),
		)

		var calls atomic.Int32
		v, err := c.Call(context.Background(), "", func(context.Context) (string, error) {
			if calls.Add(1) < 2 {
				return "", errDown
			}
			return "ok", nil
		})
		require.NoError(t, err)
		require.Equal(t, "ok", v)
	})

	t.Run("non-failure errors are not retried", func(t *testing.T) {
		t.Parallel()

		c := resilient.New[int](nil, nil,
			resilient.WithRetry(resilient.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}),
			resilient.WithIsFailure(func(err error) bool { return !errors.Is(err, errMissing) }),
		)

		var calls atomic.Int32
		_, err := c.Call(context.Background(), "", func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errMissing
		})
		require.ErrorIs(t, err, errMissing)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("rejections are not retried", func(t *testing.T) {
		t.Parallel()

		b := breaker.New(breaker.Config{})
		b.ForceOpen()
		c := resilient.New[int](b, nil,
			resilient.WithRetry(resilient.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}),
		)

		_, err := c.Call(context.Background(), "", func(context.Context) (int, error) {
			t.Fatal("must not run while open")
			return 0, nil
		})
		require.ErrorIs(t, err, breaker.ErrOpen)
		require.Zero(t, c.Stats().Retries)
	})

	t.Run("attempt timeout", func(t *testing.T) {
		t.Parallel()

		c := resilient.New[int](nil, nil, resilient.WithTimeout(10*time.Millisecond))

		_, err := c.Call(context.Background(), "", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		require.ErrorIs(t, err, resilient.ErrTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, uint64(1), c.Stats().Timeouts)
		require.Equal(t, uint64(1), c.Breaker().Stats().Failures)
	})
}

func TestCaller_Fallback(t *testing.T) {
	t.Parallel()

	t.Run("serves last known good value while open", func(t *testing.T) {
		t.Parallel()

		store := cache.NewMemory[string, string](cache.WithCleanupInterval(0))
		defer store.Close()

		b := breaker.New(breaker.Config{FailureThreshold: 1, OpenTimeout: time.Hour})
		c := resilient.New[string](b, store)
		ctx := context.Background()

		v, err := c.Call(ctx, "slug:acme", func(context.Context) (string, error) { return "Acme", nil })
		require.NoError(t, err)
		require.Equal(t, "Acme", v)

		_, err = c.Call(ctx, "slug:acme", func(context.Context) (string, error) { return "", errDown })
		require.ErrorIs(t, err, errDown, "failures are returned when fallback on failure is off")
		require.Equal(t, breaker.StateOpen, b.State())

		v, err = c.Call(ctx, "slug:acme", func(context.Context) (string, error) {
			t.Fatal("must not run while open")
			return "", nil
		})
		require.NoError(t, err)
		require.Equal(t, "Acme", v)
		require.Equal(t, uint64(1), c.Stats().Fallbacks)
	})

	t.Run("miss returns original rejection", func(t *testing.T) {
		t.Parallel()

		store := cache.NewMemory[string, string](cache.WithCleanupInterval(0))
		defer store.Close()

		b := breaker.New(breaker.Config{})
		b.ForceOpen()
		c := resilient.New[string](b, store)

		_, err := c.Call(context.Background(), "slug:unknown", func(context.Context) (string, error) { return "", nil })
		require.ErrorIs(t, err, breaker.ErrOpen)
	})

	t.Run("reports stale values and forgets them", func(t *testing.T) {
		t.Parallel()

		store := cache.NewMemory[string, string](cache.WithCleanupInterval(0))
		defer store.Close()

		b := breaker.New(breaker.Config{})
		c := resilient.New[string](b, store)
		ctx := context.Background()

		v, stale, err := c.CallStale(ctx, "slug:acme", func(context.Context) (string, error) { return "Acme", nil })
		require.NoError(t, err)
		require.False(t, stale)
		require.Equal(t, "Acme", v)

		b.ForceOpen()
		v, stale, err = c.CallStale(ctx, "slug:acme", func(context.Context) (string, error) { return "", nil })
		require.NoError(t, err)
		require.True(t, stale)
		require.Equal(t, "Acme", v)

		require.NoError(t, c.Forget(ctx, "slug:acme"))
		require.NoError(t, c.Forget(ctx, "slug:acme"), "forgetting an absent key is not an error")

		_, stale, err = c.CallStale(ctx, "slug:acme", func(context.Context) (string, error) { return "", nil })
		require.ErrorIs(t, err, breaker.ErrOpen)
		require.False(t, stale)
	})

	t.Run("fallback on failure", func(t *testing.T) {
		t.Parallel()

		store := cache.NewMemory[string, string](cache.WithCleanupInterval(0))
		defer store.Close()
		require.NoError(t, store.Set(context.Background(), "slug:acme", "stale", time.Minute))

		c := resilient.New[string](nil, store,
			resilient.WithFallbackOnFailure(),
			resilient.WithIsFailure(func(err error) bool { return !errors.Is(err, errMissing) }),
		)

		v, err := c.Call(context.Background(), "slug:acme", func(context.Context) (string, error) { return "", errDown })
		require.NoError(t, err)
		require.Equal(t, "stale", v)

		_, err = c.Call(context.Background(), "slug:acme", func(context.Context) (string, error) { return "", errMissing })
		require.ErrorIs(t, err, errMissing, "absent results never fall back")
	})
}

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy resilient.RetryPolicy
		failed int
		want   time.Duration
	}{
		{"fixed", resilient.RetryPolicy{Strategy: resilient.Fixed, BaseDelay: 100 * time.Millisecond}, 4, 100 * time.Millisecond},
		{"linear", resilient.RetryPolicy{Strategy: resilient.Linear, BaseDelay: 100 * time.Millisecond}, 3, 300 * time.Millisecond},
		{"linear capped", resilient.RetryPolicy{Strategy: resilient.Linear, BaseDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond}, 3, 250 * time.Millisecond},
		{"exponential", resilient.RetryPolicy{Strategy: resilient.Exponential, BaseDelay: 100 * time.Millisecond}, 2, 400 * time.Millisecond},
		{"exponential capped", resilient.RetryPolicy{Strategy: resilient.Exponential, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}, 10, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.policy.Delay(tt.failed))
		})
	}
}
