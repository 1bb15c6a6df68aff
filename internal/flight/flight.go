// Package flight tracks loads that are currently running so that concurrent
// callers for the same key share one execution and observe the same outcome.
package flight

import (
	"context"
	"sync"
)

// Call is a load in progress for one key. It is created by the first caller
// and completed exactly once; every waiter observes the same value and error.
type Call[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// Done returns a channel that is closed when the call completes.
func (c *Call[V]) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome. It must only be read after Done is closed.
func (c *Call[V]) Result() (V, error) {
	return c.val, c.err
}

// Wait blocks until the call completes or ctx is done.
// A cancelled waiter does not affect the call or the other waiters.
func (c *Call[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Group is a table of in-flight calls keyed by K.
// At most one Call exists per key at any time.
type Group[K comparable, V any] struct {
	calls map[K]*Call[V]
	mu    sync.Mutex
}

// NewGroup creates an empty group.
func NewGroup[K comparable, V any]() *Group[K, V] {
	return &Group[K, V]{calls: make(map[K]*Call[V])}
}

// Join returns the in-flight call for key, creating it when none exists.
// The second return value reports whether the caller created the call and
// is therefore responsible for completing it with Complete.
func (g *Group[K, V]) Join(key K) (*Call[V], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.calls[key]; ok {
		c.waiters++
		return c, false
	}

	c := &Call[V]{done: make(chan struct{})}
	g.calls[key] = c
	return c, true
}

// Lookup returns the in-flight call for key without joining it.
func (g *Group[K, V]) Lookup(key K) (*Call[V], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.calls[key]
	return c, ok
}

// Complete stores the outcome, removes the call from the table and wakes
// every waiter. It returns the number of callers that joined after the owner.
//
// Callers that need to publish the result somewhere else (a cache, for
// instance) must do so before calling Complete, so that a caller arriving
// right after removal finds the published value instead of starting a
// duplicate load.
func (g *Group[K, V]) Complete(key K, c *Call[V], val V, err error) int {
	g.mu.Lock()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
	waiters := c.waiters
	g.mu.Unlock()

	c.val, c.err = val, err
	close(c.done)
	return waiters
}

// Len returns the number of loads currently in flight.
func (g *Group[K, V]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
