package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/dataguard/internal/flight"
)

// entry holds a cached value with its bookkeeping timestamps.
type entry[K comparable, V any] struct {
	insertedAt     time.Time
	lastAccessedAt time.Time
	expiresAt      time.Time // zero value = no absolute expiry
	value          V
	key            K
}

// expired reports whether the entry is past its TTL or idle window at now.
func (e *entry[K, V]) expired(now time.Time, idle time.Duration) bool {
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		return true
	}
	return idle > 0 && !now.Before(e.lastAccessedAt.Add(idle))
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Loads      uint64
	LoadErrors uint64
	Coalesced  uint64
	Evictions  uint64
	InFlight   int
	Entries    int
}

// HitRatio returns hits / (hits + misses), or 0 when there were no lookups.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Memory is an in-memory keyed cache with absolute TTL, idle expiry,
// optional LRU eviction and single-flight loading.
//
// A hash map gives O(1) lookups and a doubly-linked list keeps LRU order:
// the most recently accessed entries are at the front.
// The mutex guards bookkeeping only; loaders always run outside of it.
type Memory[K comparable, V any] struct {
	items    map[K]*list.Element
	eviction *list.List
	flights  *flight.Group[K, V]
	opts     *memoryOptions
	onEvict  func(key K, value V)
	done     chan struct{}

	hits       atomic.Uint64
	misses     atomic.Uint64
	loads      atomic.Uint64
	loadErrors atomic.Uint64
	coalesced  atomic.Uint64
	evictions  atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewMemory creates a new in-memory cache.
//
// Example:
//
//	c := cache.NewMemory[string, *tenant.Tenant](
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithIdleTimeout(3 * time.Minute),
//	    cache.WithMaxEntries(10000),
//	)
//	defer c.Close()
func NewMemory[K comparable, V any](opts ...MemoryOption) *Memory[K, V] {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory[K, V]{
		items:    make(map[K]*list.Element),
		eviction: list.New(),
		flights:  flight.NewGroup[K, V](),
		opts:     o,
		done:     make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go m.janitor()
	}

	return m
}

// SetEvictCallback sets a function called whenever an entry leaves the cache:
// LRU eviction, expiry, deletion, invalidation and clearing.
// The callback runs with the cache lock held and must not call back into the cache.
func (m *Memory[K, V]) SetEvictCallback(fn func(key K, value V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// GetOrLoad returns the cached value for key, or runs fn to produce it.
//
// For a given key at most one fn runs at a time: concurrent callers join the
// load that is already in flight and all of them observe its outcome.
// A successful result is stored with the default TTL; an error is returned to
// every waiter and never stored, so the next call runs fn again.
//
// fn runs detached from the cancellation of ctx (values are kept). A caller
// whose ctx ends returns ctx.Err() early; the load itself keeps going and still
// populates the cache for everyone else.
func (m *Memory[K, V]) GetOrLoad(ctx context.Context, key K, fn LoadFunc[V]) (V, error) {
	return m.GetOrLoadTTL(ctx, key, func(ctx context.Context) (V, time.Duration, error) {
		v, err := fn(ctx)
		return v, 0, err
	})
}

// GetOrLoadTTL is GetOrLoad with a loader that picks the TTL of its result.
func (m *Memory[K, V]) GetOrLoadTTL(ctx context.Context, key K, fn LoadTTLFunc[V]) (V, error) {
	var zero V

	v, ok, err := m.lookup(key)
	if err != nil {
		return zero, err
	}
	if ok {
		return v, nil
	}

	call, owner := m.flights.Join(key)
	if !owner {
		m.coalesced.Add(1)
		return call.Wait(ctx)
	}

	// A load for this key may have published its value between lookup and Join.
	if v, ok := m.peek(key); ok {
		m.flights.Complete(key, call, v, nil)
		return v, nil
	}

	m.loads.Add(1)
	go m.load(context.WithoutCancel(ctx), key, call, fn)

	return call.Wait(ctx)
}

// load runs fn, publishes a successful value and then completes the call.
func (m *Memory[K, V]) load(ctx context.Context, key K, call *flight.Call[V], fn LoadTTLFunc[V]) {
	val, ttl, err := safeLoad(ctx, fn)
	if err != nil {
		m.loadErrors.Add(1)
		var zero V
		m.flights.Complete(key, call, zero, err)
		return
	}

	m.mu.Lock()
	if !m.closed {
		m.setLocked(key, val, ttl)
	}
	m.mu.Unlock()

	m.flights.Complete(key, call, val, nil)
}

func safeLoad[V any](ctx context.Context, fn LoadTTLFunc[V]) (val V, ttl time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			val, ttl = zero, 0
			err = errors.Join(ErrLoaderPanic, fmt.Errorf("%v", r))
		}
	}()
	return fn(ctx)
}

// lookup returns an unexpired value and refreshes its recency and idle timer.
func (m *Memory[K, V]) lookup(key K) (V, bool, error) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return zero, false, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		m.misses.Add(1)
		return zero, false, nil
	}

	e := elem.Value.(*entry[K, V])
	now := m.opts.now()
	if e.expired(now, m.opts.idleTimeout) {
		m.evictions.Add(1)
		m.removeElement(elem)
		m.misses.Add(1)
		return zero, false, nil
	}

	e.lastAccessedAt = now
	m.eviction.MoveToFront(elem)
	m.hits.Add(1)

	return e.value, true, nil
}

// peek returns an unexpired value without touching counters or recency.
func (m *Memory[K, V]) peek(key K) (V, bool) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if e.expired(m.opts.now(), m.opts.idleTimeout) {
		return zero, false
	}
	return e.value, true
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired.
// Accessing a key marks it as recently used and resets its idle timer.
func (m *Memory[K, V]) Get(_ context.Context, key K) (V, error) {
	v, ok, err := m.lookup(key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrNotFound
	}
	return v, nil
}

// Set stores a value with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = never expires (idle expiry still applies).
func (m *Memory[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.setLocked(key, value, ttl)
	return nil
}

// setLocked inserts or refreshes an entry. Caller must hold the mutex.
func (m *Memory[K, V]) setLocked(key K, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = m.opts.defaultTTL
	}

	now := m.opts.now()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.insertedAt = now
		e.lastAccessedAt = now
		e.expiresAt = expiresAt
		m.eviction.MoveToFront(elem)
		return
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		m.evictOldest()
	}

	e := &entry[K, V]{
		key:            key,
		value:          value,
		insertedAt:     now,
		lastAccessedAt: now,
		expiresAt:      expiresAt,
	}
	m.items[key] = m.eviction.PushFront(e)
}

// Delete removes a key from the cache.
func (m *Memory[K, V]) Delete(_ context.Context, key K) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}

	return nil
}

// Invalidate removes the entry for key immediately.
// A load already in flight for key is not cancelled: it completes and
// stores its result as usual.
func (m *Memory[K, V]) Invalidate(key K) {
	_ = m.Delete(context.Background(), key)
}

// Has checks whether a key exists and has not expired.
// It does not refresh recency or the idle timer.
func (m *Memory[K, V]) Has(_ context.Context, key K) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return false, nil
	}

	e := elem.Value.(*entry[K, V])
	if e.expired(m.opts.now(), m.opts.idleTimeout) {
		m.evictions.Add(1)
		m.removeElement(elem)
		return false, nil
	}

	return true, nil
}

// Clear removes all entries from the cache.
func (m *Memory[K, V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if m.onEvict != nil {
		for _, elem := range m.items {
			e := elem.Value.(*entry[K, V])
			m.onEvict(e.key, e.value)
		}
	}

	m.items = make(map[K]*list.Element)
	m.eviction.Init()

	return nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *Memory[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats returns a snapshot of the cache counters.
func (m *Memory[K, V]) Stats() Stats {
	return Stats{
		Hits:       m.hits.Load(),
		Misses:     m.misses.Load(),
		Loads:      m.loads.Load(),
		LoadErrors: m.loadErrors.Load(),
		Coalesced:  m.coalesced.Load(),
		Evictions:  m.evictions.Load(),
		InFlight:   m.flights.Len(),
		Entries:    m.Len(),
	}
}

// Close stops the background sweep and marks the cache as closed.
// Loads still in flight complete but no longer populate the cache.
// Close is idempotent.
func (m *Memory[K, V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)

	return nil
}

// janitor periodically removes expired entries.
func (m *Memory[K, V]) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

// deleteExpired removes all expired entries from back to front.
func (m *Memory[K, V]) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry[K, V]).expired(now, m.opts.idleTimeout) {
			m.evictions.Add(1)
			m.removeElement(elem)
		}
		elem = prev
	}
}

// evictOldest removes the least recently used entry.
// Caller must hold the mutex.
func (m *Memory[K, V]) evictOldest() {
	if elem := m.eviction.Back(); elem != nil {
		m.evictions.Add(1)
		m.removeElement(elem)
	}
}

// removeElement unlinks an element and triggers the eviction callback.
// Caller must hold the mutex.
func (m *Memory[K, V]) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	e := elem.Value.(*entry[K, V])
	delete(m.items, e.key)

	if m.onEvict != nil {
		m.onEvict(e.key, e.value)
	}
}

var _ Cache[any] = (*Memory[string, any])(nil)
