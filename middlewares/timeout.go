package middlewares

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout is used when Timeout is given a non-positive duration.
const DefaultTimeout = 30 * time.Second

// Timeout bounds the request context. Tenant lookups and loader batches
// started by the handler observe the deadline; the handler itself decides how
// to answer once it fires.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = DefaultTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeoutCause(r.Context(), d, &TimeoutError{Duration: d})
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TimeoutCause returns the TimeoutError set by Timeout once the request
// deadline has passed, or nil.
func TimeoutCause(ctx context.Context) error {
	if te, ok := context.Cause(ctx).(*TimeoutError); ok {
		return te
	}
	return nil
}
