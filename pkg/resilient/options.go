package resilient

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/logger"
)

// Option configures a Caller.
type Option func(*options)

type options struct {
	isFailure         func(error) bool
	logger            *slog.Logger
	retry             RetryPolicy
	timeout           time.Duration
	fallbackTTL       time.Duration
	fallbackOnFailure bool
}

func defaultOptions() *options {
	return &options{
		isFailure:   func(err error) bool { return err != nil },
		logger:      logger.NewNope(),
		retry:       RetryPolicy{MaxAttempts: 1},
		fallbackTTL: 0, // store default
	}
}

// WithRetry enables retries. Rejections by the breaker are never retried.
// Default: a single attempt.
func WithRetry(p RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithTimeout bounds every attempt. Zero disables the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithIsFailure decides which errors are dependency failures.
// Errors it rejects are returned at once: no retry, no fallback.
// Pass the same predicate to the breaker.
func WithIsFailure(fn func(error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.isFailure = fn
		}
	}
}

// WithFallbackOnFailure also serves the last known good value when the
// dependency fails, not only when the breaker rejects the call.
func WithFallbackOnFailure() Option {
	return func(o *options) {
		o.fallbackOnFailure = true
	}
}

// WithFallbackTTL sets the TTL of values written to the fallback store.
// Default: 0, which uses the store's own default.
func WithFallbackTTL(d time.Duration) Option {
	return func(o *options) {
		o.fallbackTTL = d
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
