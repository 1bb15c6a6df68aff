package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/dataguard/pkg/logger"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// DefaultTenantHeader carries an explicit tenant slug or id.
const DefaultTenantHeader = "X-Tenant-ID"

// TenantResolver resolves identifiers to tenants. *tenant.Resolver implements it.
type TenantResolver interface {
	ResolveIdentifier(ctx context.Context, id tenant.Identifier) (*tenant.Tenant, error)
}

type tenantConfig struct {
	logger         *slog.Logger
	errorHandler   ErrorHandler
	header         string
	baseDomain     string
	fromHost       bool
	trustForwarded bool
	optional       bool
}

// TenantOption configures the ResolveTenant middleware.
type TenantOption func(*tenantConfig)

// WithTenantHeader sets the header holding an explicit identifier.
// Default: X-Tenant-ID.
func WithTenantHeader(name string) TenantOption {
	return func(cfg *tenantConfig) {
		if name != "" {
			cfg.header = name
		}
	}
}

// WithTenantFromHost controls the fallback to the request host when the
// header is absent. Default: enabled.
func WithTenantFromHost(enabled bool) TenantOption {
	return func(cfg *tenantConfig) {
		cfg.fromHost = enabled
	}
}

// WithTenantBaseDomain resolves hosts directly under base by slug:
// with base "app.example.com", "acme.app.example.com" resolves the tenant
// with slug "acme". Other hosts still resolve by domain.
func WithTenantBaseDomain(base string) TenantOption {
	return func(cfg *tenantConfig) {
		cfg.baseDomain = tenant.NormalizeHost(base)
	}
}

// WithTrustForwardedHost makes the host fallback honor X-Forwarded-Host and
// the host parameter of Forwarded. Enable only behind a proxy that sets them.
func WithTrustForwardedHost() TenantOption {
	return func(cfg *tenantConfig) {
		cfg.trustForwarded = true
	}
}

// WithTenantOptional lets requests without any identifier through without a
// tenant. Requests naming an unknown tenant are still rejected.
func WithTenantOptional() TenantOption {
	return func(cfg *tenantConfig) {
		cfg.optional = true
	}
}

// WithTenantLogger sets the logger used for resolution failures.
func WithTenantLogger(l *slog.Logger) TenantOption {
	return func(cfg *tenantConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithTenantErrorHandler replaces DefaultErrorHandler.
func WithTenantErrorHandler(h ErrorHandler) TenantOption {
	return func(cfg *tenantConfig) {
		if h != nil {
			cfg.errorHandler = h
		}
	}
}

// ResolveTenant resolves the tenant of each request and stores it with
// tenant.WithContext. The identifier comes from the tenant header (slug or
// uuid) or else from the host: a subdomain of the base domain is a slug,
// any other host is looked up by domain.
//
// Failures are answered through the error handler: 400 for a malformed
// identifier, 404 for an unknown tenant, 403 for an inactive one and 503
// while the tenant store is isolated.
func ResolveTenant(resolver TenantResolver, opts ...TenantOption) func(http.Handler) http.Handler {
	cfg := &tenantConfig{
		logger:       logger.NewNope(),
		errorHandler: DefaultErrorHandler,
		header:       DefaultTenantHeader,
		fromHost:     true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, found, err := cfg.identifier(r)
			if err != nil {
				cfg.logger.DebugContext(ctx, "invalid tenant identifier", "error", err)
				cfg.errorHandler(w, r, err)
				return
			}
			if !found {
				if cfg.optional {
					next.ServeHTTP(w, r)
					return
				}
				cfg.errorHandler(w, r, tenant.ErrInvalidIdentifier)
				return
			}

			t, err := resolver.ResolveIdentifier(ctx, id)
			if err != nil {
				level := slog.LevelDebug
				if errors.Is(err, tenant.ErrUnavailable) || errors.Is(err, tenant.ErrBackend) {
					level = slog.LevelWarn
				}
				cfg.logger.Log(ctx, level, "tenant resolution failed", "identifier", id.Key(), "error", err)
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(tenant.WithContext(ctx, t)))
		})
	}
}

func (cfg *tenantConfig) identifier(r *http.Request) (tenant.Identifier, bool, error) {
	if v := strings.TrimSpace(r.Header.Get(cfg.header)); v != "" {
		id, err := tenant.ParseIdentifier(v)
		return id, true, err
	}
	if !cfg.fromHost {
		return tenant.Identifier{}, false, nil
	}

	host := r.Host
	if cfg.trustForwarded {
		if fh := forwardedHost(r.Header); fh != "" {
			host = fh
		}
	}
	if host == "" {
		return tenant.Identifier{}, false, nil
	}
	if sub := subdomain(tenant.NormalizeHost(host), cfg.baseDomain); sub != "" {
		id, err := tenant.Slug(sub)
		return id, true, err
	}
	id, err := tenant.Host(host)
	return id, true, err
}

// subdomain returns the single label preceding base in host, or "".
func subdomain(host, base string) string {
	if base == "" {
		return ""
	}
	label, ok := strings.CutSuffix(host, "."+base)
	if !ok || label == "" || strings.Contains(label, ".") {
		return ""
	}
	return label
}

// forwardedHost returns the client-facing host reported by the first proxy.
func forwardedHost(h http.Header) string {
	if v := h.Get("X-Forwarded-Host"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		return strings.TrimSpace(first)
	}

	first, _, _ := strings.Cut(h.Get("Forwarded"), ",")
	for pair := range strings.SplitSeq(first, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && strings.EqualFold(k, "host") {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
