package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BatchFunc fetches values for a set of distinct keys in one call.
// Keys absent from the returned map are reported as not found.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk waits for the value of one key. The bool reports whether the key was
// found. A cancelled ctx only stops the wait; the batch keeps running.
type Thunk[V any] func(ctx context.Context) (V, bool, error)

// Stats is a snapshot of loader counters.
type Stats struct {
	Batches  uint64
	Keys     uint64
	MemoHits uint64
	Errors   uint64
}

// result is the outcome of one key, shared by every caller of that key.
type result[V any] struct {
	done  chan struct{}
	err   error
	val   V
	found bool
}

func (r *result[V]) wait(ctx context.Context) (V, bool, error) {
	select {
	case <-r.done:
		return r.val, r.found, r.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

// batch is the set of keys collected during one coalescing window.
type batch[K comparable, V any] struct {
	results    map[K]*result[V]
	timer      *time.Timer
	keys       []K
	dispatched bool
}

// Loader collapses per-key loads issued during a short window into a single
// BatchFunc call and memoizes the results for its lifetime.
//
// A Loader is meant to live for one request. Results, including "not found",
// are never fetched twice; failed keys are forgotten so a later Load retries
// them. After Close any Load panics with ErrReused.
type Loader[K comparable, V any] struct {
	ctx   context.Context
	fetch BatchFunc[K, V]
	opts  *options

	mu      sync.Mutex
	memo    map[K]*result[V]
	pending *batch[K, V]
	closed  bool

	batches  atomic.Uint64
	keys     atomic.Uint64
	memoHits atomic.Uint64
	errs     atomic.Uint64
}

// New creates a loader. Batches run on ctx, usually the request context:
// ending the request cancels its outstanding batches, while a cancelled Load
// only stops that caller's wait.
//
// Example:
//
//	users := loader.New(ctx, func(ctx context.Context, ids []int64) (map[int64]*User, error) {
//	    return repo.UsersByIDs(ctx, ids)
//	}, loader.WithName("users"))
//	defer users.Close()
//
//	u, ok, err := users.Load(ctx, 42)
func New[K comparable, V any](ctx context.Context, fn BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Loader[K, V]{
		ctx:   ctx,
		fetch: fn,
		opts:  o,
		memo:  make(map[K]*result[V]),
	}
}

// Load returns the value for key, waiting for the batch that fetches it.
// A key the batch function did not return yields (zero, false, nil).
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	return l.LoadThunk(key)(ctx)
}

// LoadThunk registers key and returns a function that waits for its value.
// Registering several keys before waiting lets them share one batch.
func (l *Loader[K, V]) LoadThunk(key K) Thunk[V] {
	l.mu.Lock()

	if l.closed {
		l.mu.Unlock()
		panic(ErrReused)
	}

	if r, ok := l.memo[key]; ok {
		l.mu.Unlock()
		l.memoHits.Add(1)
		return r.wait
	}

	b := l.pending
	if b != nil {
		// Cleared while still pending: rejoin the batch instead of adding the key twice.
		if r, ok := b.results[key]; ok {
			l.memo[key] = r
			l.mu.Unlock()
			return r.wait
		}
	}

	r := &result[V]{done: make(chan struct{})}
	l.memo[key] = r

	if b == nil {
		b = &batch[K, V]{results: make(map[K]*result[V])}
		l.pending = b
		b.timer = time.AfterFunc(l.opts.wait, func() { l.dispatch(b) })
	} else {
		b.timer.Reset(l.opts.wait)
	}
	b.keys = append(b.keys, key)
	b.results[key] = r

	full := l.opts.maxBatch > 0 && len(b.keys) >= l.opts.maxBatch
	if full {
		l.pending = nil
	}
	l.mu.Unlock()

	if full {
		go l.dispatch(b)
	}
	return r.wait
}

// LoadAll loads keys, sharing batches where possible. Keys that were not
// found are absent from the result. The first error is returned.
func (l *Loader[K, V]) LoadAll(ctx context.Context, keys []K) (map[K]V, error) {
	thunks := make([]Thunk[V], len(keys))
	for i, k := range keys {
		thunks[i] = l.LoadThunk(k)
	}

	out := make(map[K]V, len(keys))
	for i, thunk := range thunks {
		v, ok, err := thunk(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			out[keys[i]] = v
		}
	}
	return out, nil
}

// Prime stores a value for key without fetching it.
// It reports false and leaves the loader unchanged when key is already known.
func (l *Loader[K, V]) Prime(key K, val V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		panic(ErrReused)
	}
	if _, ok := l.memo[key]; ok {
		return false
	}

	r := &result[V]{done: make(chan struct{}), val: val, found: true}
	close(r.done)
	l.memo[key] = r
	return true
}

// Clear forgets key so the next Load fetches it again.
// Callers already waiting for key are not affected. A key whose batch has not
// been dispatched yet stays in that batch: the next Load joins it.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.memo, key)
}

// Flush dispatches the pending batch without waiting for the window to end.
func (l *Loader[K, V]) Flush() {
	l.mu.Lock()
	b := l.pending
	l.pending = nil
	l.mu.Unlock()

	if b != nil {
		go l.dispatch(b)
	}
}

// Close dispatches the pending batch and ends the loader.
// Waiters of that batch still receive their results.
func (l *Loader[K, V]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	b := l.pending
	l.pending = nil
	l.mu.Unlock()

	if b != nil {
		go l.dispatch(b)
	}
}

// Stats returns a snapshot of the loader counters.
func (l *Loader[K, V]) Stats() Stats {
	return Stats{
		Batches:  l.batches.Load(),
		Keys:     l.keys.Load(),
		MemoHits: l.memoHits.Load(),
		Errors:   l.errs.Load(),
	}
}

// dispatch runs b once, whichever of the window timer, the size cap, Flush
// or Close gets here first.
func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	l.mu.Lock()
	if b.dispatched {
		l.mu.Unlock()
		return
	}
	b.dispatched = true
	b.timer.Stop()
	if l.pending == b {
		l.pending = nil
	}
	keys := b.keys
	l.mu.Unlock()

	start := time.Now()
	values, err := l.safeFetch(keys)
	elapsed := time.Since(start)

	l.batches.Add(1)
	l.keys.Add(uint64(len(keys)))
	if err != nil {
		l.errs.Add(1)
		l.opts.logger.WarnContext(l.ctx, "batch load failed",
			"loader", l.opts.name,
			"keys", len(keys),
			"error", err,
		)
	}
	if l.opts.observer != nil {
		l.opts.observer.ObserveBatch(l.opts.name, len(keys), elapsed, err)
	}

	l.mu.Lock()
	for _, k := range keys {
		r := b.results[k]
		if err != nil {
			r.err = err
			if l.memo[k] == r {
				delete(l.memo, k)
			}
			continue
		}
		r.val, r.found = values[k]
	}
	l.mu.Unlock()

	for _, r := range b.results {
		close(r.done)
	}
}

func (l *Loader[K, V]) safeFetch(keys []K) (values map[K]V, err error) {
	defer func() {
		if r := recover(); r != nil {
			values = nil
			err = errors.Join(ErrBatchPanic, fmt.Errorf("%v", r))
		}
	}()
	return l.fetch(l.ctx, keys)
}
