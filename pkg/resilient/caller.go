package resilient

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
	"github.com/dmitrymomot/dataguard/pkg/cache"
)

// Func is the guarded operation.
type Func[V any] func(ctx context.Context) (V, error)

// Stats is a snapshot of caller counters.
type Stats struct {
	Calls     uint64
	Retries   uint64
	Timeouts  uint64
	Fallbacks uint64
}

// Caller runs operations through a circuit breaker with optional retry,
// per-attempt timeout and a last-known-good fallback store.
type Caller[V any] struct {
	breaker  *breaker.Breaker
	fallback cache.Cache[V]
	opts     *options

	calls     atomic.Uint64
	retries   atomic.Uint64
	timeouts  atomic.Uint64
	fallbacks atomic.Uint64
}

// New creates a Caller guarded by b. A nil b gets a breaker with the default
// configuration. fallback may be nil.
//
// Example:
//
//	c := resilient.New[*tenant.Tenant](b, redisStore,
//	    resilient.WithTimeout(2*time.Second),
//	    resilient.WithRetry(resilient.DefaultRetryPolicy()),
//	)
func New[V any](b *breaker.Breaker, fallback cache.Cache[V], opts ...Option) *Caller[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if b == nil {
		b = breaker.New(breaker.DefaultConfig())
	}

	return &Caller[V]{
		breaker:  b,
		fallback: fallback,
		opts:     o,
	}
}

// Breaker returns the underlying breaker.
func (c *Caller[V]) Breaker() *breaker.Breaker {
	return c.breaker
}

// Call runs fn and returns its result.
//
// Every attempt passes through the breaker. Successful values are written to
// the fallback store under key. When the breaker rejects the call, or when
// fallback on failure is enabled and the dependency fails, a stored value for
// key is returned instead of the error. Without a stored value the original
// error is returned. An empty key disables the fallback for this call.
func (c *Caller[V]) Call(ctx context.Context, key string, fn Func[V]) (V, error) {
	v, _, err := c.CallStale(ctx, key, fn)
	return v, err
}

// CallStale is Call that also reports whether the value was served from the
// fallback store rather than by fn. Callers that cache results should keep a
// stale value only briefly.
func (c *Caller[V]) CallStale(ctx context.Context, key string, fn Func[V]) (V, bool, error) {
	c.calls.Add(1)

	v, err := c.run(ctx, fn)
	if err == nil {
		c.remember(ctx, key, v)
		return v, false, nil
	}

	if fv, ok := c.recall(ctx, key, err); ok {
		return fv, true, nil
	}

	var zero V
	return zero, false, err
}

// Forget removes the fallback value stored under key.
func (c *Caller[V]) Forget(ctx context.Context, key string) error {
	if c.fallback == nil || key == "" {
		return nil
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	if err := c.fallback.Delete(fctx, key); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	return nil
}

func (c *Caller[V]) run(ctx context.Context, fn Func[V]) (V, error) {
	var zero V
	policy := c.opts.retry
	attempts := policy.attempts()

	for attempt := 1; ; attempt++ {
		v, err := breaker.Call(ctx, c.breaker, c.attempt(fn))
		if err == nil {
			return v, nil
		}

		if attempt >= attempts ||
			breaker.IsRejection(err) ||
			!c.opts.isFailure(err) ||
			!policy.retryable(err) ||
			ctx.Err() != nil {
			return zero, err
		}

		delay := policy.Delay(attempt)
		c.opts.logger.DebugContext(ctx, "retrying operation",
			"breaker", c.breaker.Name(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if waitErr := sleep(ctx, delay); waitErr != nil {
			return zero, errors.Join(err, waitErr)
		}
		c.retries.Add(1)
	}
}

// attempt applies the per-attempt timeout to fn.
func (c *Caller[V]) attempt(fn Func[V]) func(context.Context) (V, error) {
	if c.opts.timeout <= 0 {
		return fn
	}

	return func(ctx context.Context) (V, error) {
		actx, cancel := context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()

		v, err := fn(actx)
		if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			c.timeouts.Add(1)
			var zero V
			return zero, errors.Join(ErrTimeout, context.DeadlineExceeded)
		}
		return v, err
	}
}

func (c *Caller[V]) remember(ctx context.Context, key string, v V) {
	if c.fallback == nil || key == "" {
		return
	}
	if err := c.fallback.Set(ctx, key, v, c.opts.fallbackTTL); err != nil {
		c.opts.logger.WarnContext(ctx, "failed to store fallback value",
			"key", key,
			"error", err,
		)
	}
}

func (c *Caller[V]) recall(ctx context.Context, key string, cause error) (V, bool) {
	var zero V
	if c.fallback == nil || key == "" {
		return zero, false
	}

	rejected := breaker.IsRejection(cause)
	if !rejected && !(c.opts.fallbackOnFailure && c.opts.isFailure(cause)) {
		return zero, false
	}

	// The caller's deadline may already be spent by the failed attempts.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	v, err := c.fallback.Get(rctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.opts.logger.WarnContext(ctx, "failed to read fallback value",
				"key", key,
				"error", err,
			)
		}
		return zero, false
	}

	c.fallbacks.Add(1)
	c.opts.logger.WarnContext(ctx, "serving last known good value",
		"breaker", c.breaker.Name(),
		"key", key,
		"cause", cause,
	)
	return v, true
}

// Stats returns a snapshot of the caller counters.
func (c *Caller[V]) Stats() Stats {
	return Stats{
		Calls:     c.calls.Load(),
		Retries:   c.retries.Load(),
		Timeouts:  c.timeouts.Load(),
		Fallbacks: c.fallbacks.Load(),
	}
}
