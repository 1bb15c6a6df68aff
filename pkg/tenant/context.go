package tenant

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/dataguard/pkg/logger"
)

type tenantKey struct{}

// WithContext returns a copy of ctx carrying t.
func WithContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext returns the tenant stored by WithContext.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*Tenant)
	return t, ok && t != nil
}

// IDExtractor returns a logger.ContextExtractor that adds "tenant_id" to log records.
//
// Example:
//
//	log, err := logger.New(cfg.Log, middlewares.RequestIDExtractor(), tenant.IDExtractor(), tenant.SlugExtractor())
func IDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if t, ok := FromContext(ctx); ok {
			return slog.String("tenant_id", t.ID.String()), true
		}
		return slog.Attr{}, false
	}
}

// SlugExtractor returns a logger.ContextExtractor that adds "tenant_slug" to log records.
func SlugExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if t, ok := FromContext(ctx); ok {
			return slog.String("tenant_slug", t.Slug), true
		}
		return slog.Attr{}, false
	}
}
