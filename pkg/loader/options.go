package loader

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/logger"
)

// Observer receives one call per executed batch.
type Observer interface {
	ObserveBatch(name string, size int, d time.Duration, err error)
}

// Option configures a Loader.
type Option func(*options)

type options struct {
	observer Observer
	logger   *slog.Logger
	name     string
	wait     time.Duration
	maxBatch int
}

func defaultOptions() *options {
	return &options{
		logger:   logger.NewNope(),
		name:     "loader",
		wait:     time.Millisecond,
		maxBatch: 1000,
	}
}

// WithWait sets the coalescing window. The window restarts whenever a new
// key is registered, so keys requested close together share one batch.
// Default: 1ms.
func WithWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.wait = d
		}
	}
}

// WithMaxBatch dispatches a batch as soon as it holds n keys.
// Zero or negative means no cap. Default: 1000.
func WithMaxBatch(n int) Option {
	return func(o *options) {
		o.maxBatch = n
	}
}

// WithName sets the name used in logs and metrics. Default: "loader".
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
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

// WithObserver reports every batch to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
