package loader_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/loader"
)

// recorder is a batch function that records every call.
type recorder struct {
	err   error
	data  map[int]string
	calls [][]int
	mu    sync.Mutex
}

func newRecorder() *recorder {
	return &recorder{data: map[int]string{1: "one", 2: "two", 3: "three", 4: "four"}}
}

func (r *recorder) fetch(_ context.Context, keys []int) (map[int]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	r.calls = append(r.calls, sorted)

	if r.err != nil {
		return nil, r.err
	}
	out := make(map[int]string, len(keys))
	for _, k := range keys {
		if v, ok := r.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r *recorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recorder) snapshot() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func TestLoader_Coalescing(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch, loader.WithWait(50*time.Millisecond))
	defer l.Close()

	var wg sync.WaitGroup
	results := make([]map[int]string, 2)
	for i, keys := range [][]int{{1, 2, 3}, {2, 4}} {
		wg.Add(1)
		go func(i int, keys []int) {
			defer wg.Done()
			got, err := l.LoadAll(ctx, keys)
			require.NoError(t, err)
			results[i] = got
		}(i, keys)
	}
	wg.Wait()

	require.Equal(t, [][]int{{1, 2, 3, 4}}, rec.snapshot())
	require.Equal(t, map[int]string{1: "one", 2: "two", 3: "three"}, results[0])
	require.Equal(t, map[int]string{2: "two", 4: "four"}, results[1])
	require.Equal(t, uint64(1), l.Stats().Batches)
	require.Equal(t, uint64(4), l.Stats().Keys)
}

func TestLoader_Memoization(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch)
	defer l.Close()

	v, ok, err := l.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "one", v)

	v, ok, err = l.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "one", v)

	require.Len(t, rec.snapshot(), 1, "memoized key must not be fetched again")
	require.Equal(t, uint64(1), l.Stats().MemoHits)

	l.Clear(1)
	_, _, err = l.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rec.snapshot(), 2, "cleared key is fetched again")
}

func TestLoader_MissingKey(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch)
	defer l.Close()

	v, ok, err := l.Load(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)

	_, ok, err = l.Load(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, rec.snapshot(), 1, "absent result is memoized")
}

func TestLoader_ErrorFanOut(t *testing.T) {
	t.Parallel()

	errDB := errors.New("db down")
	rec := newRecorder()
	rec.setErr(errDB)

	ctx := context.Background()
	l := loader.New(ctx, rec.fetch, loader.WithWait(20*time.Millisecond))
	defer l.Close()

	t1 := l.LoadThunk(1)
	t2 := l.LoadThunk(2)

	_, _, err := t1(ctx)
	require.ErrorIs(t, err, errDB)
	_, _, err = t2(ctx)
	require.ErrorIs(t, err, errDB)
	require.Len(t, rec.snapshot(), 1)
	require.Equal(t, uint64(1), l.Stats().Errors)

	rec.setErr(nil)
	v, ok, err := l.Load(ctx, 1)
	require.NoError(t, err, "failed keys are not memoized")
	require.True(t, ok)
	require.Equal(t, "one", v)
	require.Len(t, rec.snapshot(), 2)
}

func TestLoader_Panic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := loader.New(ctx, func(context.Context, []int) (map[int]string, error) {
		panic("boom")
	})
	defer l.Close()

	_, _, err := l.Load(ctx, 1)
	require.ErrorIs(t, err, loader.ErrBatchPanic)
}

func TestLoader_MaxBatch(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch, loader.WithWait(time.Hour), loader.WithMaxBatch(2))
	defer l.Close()

	t1 := l.LoadThunk(1)
	t2 := l.LoadThunk(2)
	t3 := l.LoadThunk(3)

	_, _, err := t1(ctx)
	require.NoError(t, err)
	_, _, err = t2(ctx)
	require.NoError(t, err)

	l.Flush()
	v, ok, err := t3(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "three", v)

	require.Equal(t, [][]int{{1, 2}, {3}}, rec.snapshot())
}

func TestLoader_ClearWhilePending(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch, loader.WithWait(time.Hour))
	defer l.Close()

	first := l.LoadThunk(1)
	l.Clear(1)
	second := l.LoadThunk(1)
	l.Flush()

	wctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	for _, thunk := range []loader.Thunk[string]{first, second} {
		v, ok, err := thunk(wctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "one", v)
	}
	require.Equal(t, [][]int{{1}}, rec.snapshot(), "a cleared pending key is fetched once")

	l.Clear(1)
	again := l.LoadThunk(1)
	l.Flush()
	_, _, err := again(wctx)
	require.NoError(t, err)
	require.Equal(t, [][]int{{1}, {1}}, rec.snapshot(), "a cleared completed key is fetched again")
}

func TestLoader_Flush(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch, loader.WithWait(time.Hour))
	defer l.Close()

	thunk := l.LoadThunk(4)
	l.Flush()

	v, ok, err := thunk(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "four", v)
}

func TestLoader_CancelledCaller(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ctx := context.Background()
	l := loader.New(ctx, func(_ context.Context, keys []int) (map[int]string, error) {
		<-release
		return map[int]string{1: "one"}, nil
	}, loader.WithWait(time.Millisecond))
	defer l.Close()

	cctx, cancel := context.WithCancel(ctx)
	waiting := l.LoadThunk(1)
	cancel()

	_, _, err := waiting(cctx)
	require.ErrorIs(t, err, context.Canceled)

	other := l.LoadThunk(1)
	close(release)

	v, ok, err := other(ctx)
	require.NoError(t, err, "batch keeps running for other callers")
	require.True(t, ok)
	require.Equal(t, "one", v)
}

func TestLoader_Prime(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch)
	defer l.Close()

	require.True(t, l.Prime(7, "seven"))
	require.False(t, l.Prime(7, "other"))

	v, ok, err := l.Load(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "seven", v)
	require.Empty(t, rec.snapshot())
}

func TestLoader_UseAfterClose(t *testing.T) {
	t.Parallel()

	l := loader.New(context.Background(), newRecorder().fetch)
	l.Close()
	l.Close()

	require.PanicsWithValue(t, loader.ErrReused, func() {
		_, _, _ = l.Load(context.Background(), 1)
	})
}

func TestLoader_CloseDispatchesPending(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	ctx := context.Background()
	l := loader.New(ctx, rec.fetch, loader.WithWait(time.Hour))

	thunk := l.LoadThunk(2)
	l.Close()

	v, ok, err := thunk(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "two", v)
}

type observed struct {
	name string
	size int
	err  error
}

type observer struct {
	mu    sync.Mutex
	calls []observed
}

func (o *observer) ObserveBatch(name string, size int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{name: name, size: size, err: err})
}

func TestLoader_Observer(t *testing.T) {
	t.Parallel()

	obs := &observer{}
	ctx := context.Background()
	l := loader.New(ctx, newRecorder().fetch, loader.WithName("numbers"), loader.WithObserver(obs))
	defer l.Close()

	_, err := l.LoadAll(ctx, []int{1, 2})
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, []observed{{name: "numbers", size: 2}}, obs.calls)
}

func TestLoadMany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var calls [][]string
	var mu sync.Mutex
	l := loader.NewMany(ctx, func(_ context.Context, owners []string) (map[string][]int, error) {
		mu.Lock()
		calls = append(calls, slices.Sorted(slices.Values(owners)))
		mu.Unlock()
		return map[string][]int{"alice": {1, 2}, "bob": {3}}, nil
	}, loader.WithWait(20*time.Millisecond))
	defer l.Close()

	var wg sync.WaitGroup
	got := make(map[string][]int)
	var gotMu sync.Mutex
	for _, owner := range []string{"alice", "bob", "carol"} {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			vs, err := loader.LoadMany(ctx, l, owner)
			require.NoError(t, err)
			gotMu.Lock()
			got[owner] = vs
			gotMu.Unlock()
		}(owner)
	}
	wg.Wait()

	require.Equal(t, []int{1, 2}, got["alice"])
	require.Equal(t, []int{3}, got["bob"])
	require.NotNil(t, got["carol"])
	require.Empty(t, got["carol"])

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, [][]string{{"alice", "bob", "carol"}}, calls)
}
