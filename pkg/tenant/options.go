package tenant

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
	"github.com/dmitrymomot/dataguard/pkg/cache"
	"github.com/dmitrymomot/dataguard/pkg/logger"
)

// Option configures a Resolver.
type Option func(*options)

type options struct {
	fallback      cache.Cache[*Tenant]
	logger        *slog.Logger
	now           func() time.Time
	onStateChange func(name string, from, to breaker.State)
}

func defaultOptions() *options {
	return &options{
		logger: logger.NewNope(),
		now:    time.Now,
	}
}

// WithFallback keeps the last known good tenant in store and serves it while
// the circuit is open. A Redis store lets a restarted process keep serving
// tenants it resolved before the outage.
func WithFallback(store cache.Cache[*Tenant]) Option {
	return func(o *options) {
		o.fallback = store
	}
}

// WithLogger sets the logger. Default: discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOnStateChange is called on every breaker transition.
func WithOnStateChange(fn func(name string, from, to breaker.State)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

// WithClock replaces the time source of the cache and the breaker. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
