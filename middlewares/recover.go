package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/dmitrymomot/dataguard/pkg/logger"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

type recoverConfig struct {
	logger       *slog.Logger
	errorHandler ErrorHandler
	stackSize    int
}

// RecoverOption configures the Recover middleware.
type RecoverOption func(*recoverConfig)

// WithRecoverLogger sets the logger panics are reported to.
func WithRecoverLogger(l *slog.Logger) RecoverOption {
	return func(cfg *recoverConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithRecoverStackSize sets the captured stack size. Zero disables capture.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *recoverConfig) {
		cfg.stackSize = max(size, 0)
	}
}

// WithRecoverErrorHandler replaces DefaultErrorHandler.
func WithRecoverErrorHandler(h ErrorHandler) RecoverOption {
	return func(cfg *recoverConfig) {
		if h != nil {
			cfg.errorHandler = h
		}
	}
}

// Recover turns handler panics into a logged PanicError and a 500 response.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recover(opts ...RecoverOption) func(http.Handler) http.Handler {
	cfg := &recoverConfig{
		logger:       logger.NewNope(),
		errorHandler: DefaultErrorHandler,
		stackSize:    DefaultStackSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				pe := &PanicError{Value: rec}
				if cfg.stackSize > 0 {
					buf := make([]byte, cfg.stackSize)
					pe.Stack = buf[:runtime.Stack(buf, false)]
				}

				cfg.logger.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(pe.Stack),
				)
				cfg.errorHandler(w, r, pe)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
