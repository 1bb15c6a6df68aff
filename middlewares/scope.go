package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/dataguard/pkg/logger"
	"github.com/dmitrymomot/dataguard/pkg/scope"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

type scopeConfig struct {
	logger *slog.Logger
}

// ScopeOption configures the RequestScope middleware.
type ScopeOption func(*scopeConfig)

// WithScopeLogger sets the logger that receives per-request loader stats at
// debug level.
func WithScopeLogger(l *slog.Logger) ScopeOption {
	return func(cfg *scopeConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// RequestScope opens a scope.Scope for each request and closes it once the
// handler returns, so loaders never outlive their request. It must run after
// ResolveTenant for batch functions to see the tenant.
func RequestScope(reg *scope.Registry, opts ...ScopeOption) func(http.Handler) http.Handler {
	cfg := &scopeConfig{logger: logger.NewNope()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			t, _ := tenant.FromContext(ctx)

			s := scope.New(ctx, reg, t)
			defer func() {
				s.Close()
				for kind, st := range s.Stats() {
					cfg.logger.DebugContext(ctx, "request loader stats",
						"kind", kind,
						"batches", st.Batches,
						"keys", st.Keys,
						"memo_hits", st.MemoHits,
					)
				}
			}()

			next.ServeHTTP(w, r.WithContext(scope.WithScope(ctx, s)))
		})
	}
}
