package flight_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/internal/flight"
)

func TestGroup_JoinComplete(t *testing.T) {
	t.Parallel()

	g := flight.NewGroup[string, int]()

	owner, created := g.Join("a")
	require.True(t, created)

	const joiners = 5
	var wg sync.WaitGroup
	results := make([]int, joiners)
	for i := range joiners {
		c, created := g.Join("a")
		require.False(t, created)
		require.Same(t, owner, c)

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Wait(context.Background())
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	require.Equal(t, 1, g.Len())

	require.Equal(t, joiners, g.Complete("a", owner, 42, nil))
	wg.Wait()

	for _, v := range results {
		require.Equal(t, 42, v)
	}
	require.Zero(t, g.Len())

	_, ok := g.Lookup("a")
	require.False(t, ok)

	next, created := g.Join("a")
	require.True(t, created, "a completed key starts a new call")
	require.NotSame(t, owner, next)
}

func TestGroup_Error(t *testing.T) {
	t.Parallel()

	errLoad := errors.New("load failed")
	g := flight.NewGroup[int, string]()

	c, _ := g.Join(1)
	got, ok := g.Lookup(1)
	require.True(t, ok)
	require.Same(t, c, got)

	g.Complete(1, c, "", errLoad)

	<-c.Done()
	_, err := c.Result()
	require.ErrorIs(t, err, errLoad)
}

func TestCall_WaitCancelled(t *testing.T) {
	t.Parallel()

	g := flight.NewGroup[int, string]()
	c, _ := g.Join(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)

	g.Complete(1, c, "done", nil)
	v, err := c.Wait(context.Background())
	require.NoError(t, err, "a cancelled waiter does not affect the call")
	require.Equal(t, "done", v)
}
