package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// ContextExtractor returns a request-scoped attribute, if ctx carries one.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// New builds a logger writing to stdout as described by cfg.
// When cfg.SentryDSN is set, records at or above cfg.SentryLevel are also sent
// to Sentry. A Sentry init failure is logged and the logger keeps working
// without it.
//
// Example:
//
//	log, err := logger.New(cfg.Log, middlewares.RequestIDExtractor(), tenant.SlugExtractor())
func New(cfg Config, extractors ...ContextExtractor) (*slog.Logger, error) {
	return NewWithOutput(os.Stdout, cfg, extractors...)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(w io.Writer, cfg Config, extractors ...ContextExtractor) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	var out slog.Handler
	switch cfg.Format {
	case "", "json":
		out = slog.NewJSONHandler(w, hopts)
	case "text":
		out = slog.NewTextHandler(w, hopts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Format)
	}

	if cfg.SentryDSN == "" {
		return slog.New(withContext(out, extractors)), nil
	}

	sentryLevel, err := ParseLevel(cfg.SentryLevel)
	if err != nil {
		return nil, err
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(out).Error("failed to initialize sentry", "error", err)
		return slog.New(withContext(out, extractors)), nil
	}

	forward := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   levelsFrom(sentryLevel),
	}.NewSentryHandler(context.Background())

	return slog.New(withContext(fanout{out, forward}, extractors)), nil
}

// Flush waits up to timeout for buffered Sentry events to be delivered.
// It is a no-op when Sentry was never initialized.
func Flush(timeout time.Duration) bool {
	if sentry.CurrentHub().Client() == nil {
		return true
	}
	return sentry.Flush(timeout)
}

// NewNope returns a logger that discards everything.
// Components use it when no logger is configured.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func levelsFrom(floor slog.Level) []slog.Level {
	var out []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= floor {
			out = append(out, l)
		}
	}
	return out
}
