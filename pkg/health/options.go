package health

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/dataguard/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// Option configures check execution.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	optional map[string]bool
	timeout  time.Duration
}

func defaultOptions() *options {
	return &options{
		logger:   logger.NewNope(),
		optional: make(map[string]bool),
		timeout:  defaultTimeout,
	}
}

// WithTimeout bounds the whole check run. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOptional marks checks whose failure degrades the service without
// making it unready, such as a fallback cache.
func WithOptional(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.optional[n] = true
		}
	}
}
