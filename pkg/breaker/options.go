package breaker

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/logger"
)

// Option configures a Breaker.
type Option func(*options)

type options struct {
	now           func() time.Time
	isFailure     func(error) bool
	onStateChange func(name string, from, to State)
	logger        *slog.Logger
	name          string
}

func defaultOptions() *options {
	return &options{
		now:       time.Now,
		isFailure: func(err error) bool { return err != nil },
		logger:    logger.NewNope(),
		name:      "default",
	}
}

// WithName sets the name used in logs, metrics and state change callbacks.
// Default: "default".
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithIsFailure decides which non-nil errors count as failures.
// Errors it rejects count as successes: the dependency answered, the answer
// was simply negative (a missing row, for instance).
// context.Canceled is never counted either way.
// Default: every non-nil error is a failure.
func WithIsFailure(fn func(error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.isFailure = fn
		}
	}
}

// WithOnStateChange registers a callback invoked after every transition.
// It runs outside the breaker lock.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

// WithLogger sets the logger used to report transitions.
// Default: discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
