package dataguard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/dataguard/middlewares"
	"github.com/dmitrymomot/dataguard/pkg/cache"
	"github.com/dmitrymomot/dataguard/pkg/db"
	"github.com/dmitrymomot/dataguard/pkg/health"
	"github.com/dmitrymomot/dataguard/pkg/loader"
	"github.com/dmitrymomot/dataguard/pkg/logger"
	"github.com/dmitrymomot/dataguard/pkg/metrics"
	"github.com/dmitrymomot/dataguard/pkg/redis"
	"github.com/dmitrymomot/dataguard/pkg/resilient"
	"github.com/dmitrymomot/dataguard/pkg/scope"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// Core holds the long-lived parts of a dataguard service: the tenant store
// and resolver, the optional Redis fallback, the loader registry and the
// telemetry sink. Request-scoped state lives in scope.Scope.
type Core struct {
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Resolver *tenant.Resolver
	Registry *scope.Registry
	Store    tenant.Store

	// Pool is nil unless the tenant store is Postgres.
	Pool *pgxpool.Pool
	// Redis is nil unless a Redis URL is configured.
	Redis goredis.UniversalClient

	cfg       Config
	closeOnce sync.Once
	closeErr  error
}

// Open builds a Core from cfg. The tenant store is, in order of preference,
// the WithTenantStore option, Postgres when cfg.DB has a connection URL, or
// the YAML file named by cfg.TenantsFile.
//
// Example:
//
//	cfg, err := dataguard.LoadConfig()
//	core, err := dataguard.Open(ctx, cfg)
//	defer core.Close()
//
//	scope.RegisterEntity(core.Registry, "user", usersByID)
//	r.Use(core.Middleware()...)
func Open(ctx context.Context, cfg Config, opts ...Option) (*Core, error) {
	o := &options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}

	c := &Core{cfg: cfg, Logger: o.logger}
	if c.Logger == nil {
		log, err := logger.New(cfg.Log,
			middlewares.RequestIDExtractor(),
			tenant.IDExtractor(),
			tenant.SlugExtractor(),
		)
		if err != nil {
			return nil, err
		}
		c.Logger = log
	}
	c.Metrics = metrics.New(o.registerer)

	if err := c.openStore(ctx, o.store); err != nil {
		_ = c.Close()
		return nil, err
	}

	resolverOpts := []tenant.Option{
		tenant.WithLogger(c.Logger.With("component", "tenant")),
		tenant.WithOnStateChange(c.Metrics.OnStateChange),
	}
	if cfg.Redis.Enabled() {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Redis = client
		resolverOpts = append(resolverOpts, tenant.WithFallback(
			cache.NewRedis[*tenant.Tenant](client, cache.JSON[*tenant.Tenant](), cache.WithPrefix(cfg.FallbackPrefix)),
		))
	}

	c.Resolver = tenant.NewResolver(c.Store, cfg.Tenant, resolverOpts...)

	err := errors.Join(
		c.Metrics.RegisterBreaker(c.Resolver.Breaker()),
		c.Metrics.RegisterCache("tenant", c.Resolver.Cache().Stats),
		c.Metrics.RegisterCaller("tenant", func() resilient.Stats { return c.Resolver.Stats().Caller }),
	)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	loaderOpts := append([]loader.Option{
		loader.WithLogger(c.Logger.With("component", "loader")),
		loader.WithObserver(c.Metrics),
	}, o.loaderOpts...)
	c.Registry = scope.NewRegistry(loaderOpts...)

	if len(cfg.WarmTenants) > 0 {
		if err := c.Resolver.Warm(ctx, cfg.WarmTenants...); err != nil {
			c.Logger.WarnContext(ctx, "tenant warm-up incomplete", "error", err)
		}
	}

	return c, nil
}

func (c *Core) openStore(ctx context.Context, store tenant.Store) error {
	switch {
	case store != nil:
		c.Store = store
	case c.cfg.DB.ConnectionString != "":
		pool, err := db.Connect(ctx, c.cfg.DB)
		if err != nil {
			return err
		}
		c.Pool = pool
		if c.cfg.DB.AutoMigrate {
			err := db.Migrate(ctx, pool, tenant.Migrations(), c.cfg.DB.MigrationsTable, c.Logger.With("component", "migrate"))
			if err != nil {
				return err
			}
		}
		c.Store = tenant.NewPostgresStore(pool)
	case c.cfg.TenantsFile != "":
		s, err := tenant.LoadStaticStore(c.cfg.TenantsFile)
		if err != nil {
			return err
		}
		c.Store = s
	default:
		return ErrNoTenantStore
	}
	return nil
}

// Middleware returns the request pipeline: request id, panic recovery,
// request timeout, tenant resolution and the request scope, in that order.
func (c *Core) Middleware() []func(http.Handler) http.Handler {
	tenantOpts := []middlewares.TenantOption{middlewares.WithTenantLogger(c.Logger)}
	if c.cfg.HTTP.TrustForwardedHost {
		tenantOpts = append(tenantOpts, middlewares.WithTrustForwardedHost())
	}
	if c.cfg.HTTP.TenantBaseDomain != "" {
		tenantOpts = append(tenantOpts, middlewares.WithTenantBaseDomain(c.cfg.HTTP.TenantBaseDomain))
	}

	return []func(http.Handler) http.Handler{
		middlewares.RequestID(),
		middlewares.Recover(middlewares.WithRecoverLogger(c.Logger)),
		middlewares.Timeout(c.cfg.HTTP.RequestTimeout),
		middlewares.ResolveTenant(c.Resolver, tenantOpts...),
		middlewares.RequestScope(c.Registry, middlewares.WithScopeLogger(c.Logger)),
	}
}

// Checks returns the readiness checks of every configured dependency.
// The Redis check is optional: the fallback store only degrades service.
func (c *Core) Checks() (health.Checks, []health.Option) {
	checks := health.Checks{"tenants": c.Resolver.HealthCheck}
	opts := []health.Option{health.WithLogger(c.Logger)}

	if c.Pool != nil {
		checks["postgres"] = db.Healthcheck(c.Pool)
	}
	if c.Redis != nil {
		checks["redis"] = redis.Healthcheck(c.Redis)
		opts = append(opts, health.WithOptional("redis"))
	}
	return checks, opts
}

// Ready runs the readiness checks once.
func (c *Core) Ready(ctx context.Context) *health.Response {
	checks, opts := c.Checks()
	return health.Run(ctx, checks, opts...)
}

// Close releases the resolver, the Redis client and the pool, then flushes
// buffered Sentry events. It is safe to call more than once.
func (c *Core) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.Resolver != nil {
			errs = append(errs, c.Resolver.Close())
		}
		if c.Redis != nil {
			errs = append(errs, c.Redis.Close())
		}
		if c.Pool != nil {
			c.Pool.Close()
		}
		logger.Flush(2 * time.Second)
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
