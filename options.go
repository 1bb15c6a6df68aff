package dataguard

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/dataguard/pkg/loader"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// Option configures Open.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	store      tenant.Store
	loaderOpts []loader.Option
}

// WithLogger replaces the logger built from Config.Log.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer sets the Prometheus registerer.
// Default: prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		if r != nil {
			o.registerer = r
		}
	}
}

// WithTenantStore uses store instead of the database or tenants file.
func WithTenantStore(store tenant.Store) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithLoaderOptions adds defaults applied to every request-scoped loader.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(o *options) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}
