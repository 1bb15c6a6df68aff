package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
	"github.com/dmitrymomot/dataguard/pkg/cache"
	"github.com/dmitrymomot/dataguard/pkg/resilient"
)

// BreakerName is the name of the breaker guarding the tenant store.
const BreakerName = "tenant-store"

// Stats is a snapshot of the resolver internals.
type Stats struct {
	Cache   cache.Stats
	Breaker breaker.Stats
	Caller  resilient.Stats
}

// Resolver maps identifiers to tenants.
//
// A cache hit never touches the store. On a miss exactly one lookup per
// identifier runs at a time, whatever the number of concurrent requests; it
// goes through a circuit breaker so a failing store is not hammered.
// Absent tenants are neither cached nor counted as store failures.
type Resolver struct {
	store   Store
	cache   *cache.Memory[string, *Tenant]
	breaker *breaker.Breaker
	caller  *resilient.Caller[*Tenant]
	opts    *options
	cfg     Config
}

// NewResolver creates a resolver over store. Zero Config fields use
// DefaultConfig, except RejectInactive which is taken as given.
//
// Example:
//
//	r := tenant.NewResolver(tenant.NewPostgresStore(pool), cfg.Tenant,
//	    tenant.WithLogger(log),
//	    tenant.WithFallback(cache.NewRedis[*tenant.Tenant](client, nil, cache.WithPrefix("tenant"))),
//	)
//	defer r.Close()
func NewResolver(store Store, cfg Config, opts ...Option) *Resolver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg = cfg.withDefaults()

	b := breaker.New(cfg.Breaker,
		breaker.WithName(BreakerName),
		breaker.WithIsFailure(isStoreFailure),
		breaker.WithLogger(o.logger),
		breaker.WithClock(o.now),
		breaker.WithOnStateChange(o.onStateChange),
	)

	callerOpts := []resilient.Option{
		resilient.WithIsFailure(isStoreFailure),
		resilient.WithLogger(o.logger),
		resilient.WithTimeout(cfg.LookupTimeout),
		resilient.WithFallbackTTL(-1),
		resilient.WithRetry(resilient.RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			Strategy:    resilient.Exponential,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.LookupTimeout,
		}),
	}

	return &Resolver{
		store:   store,
		breaker: b,
		caller:  resilient.New(b, o.fallback, callerOpts...),
		cache: cache.NewMemory[string, *Tenant](
			cache.WithDefaultTTL(cfg.CacheTTL),
			cache.WithIdleTimeout(cfg.IdleTimeout),
			cache.WithMaxEntries(cfg.MaxEntries),
			cache.WithClock(o.now),
		),
		opts: o,
		cfg:  cfg,
	}
}

func isStoreFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidIdentifier)
}

// Resolve returns the tenant with the given slug.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*Tenant, error) {
	id, err := Slug(slug)
	if err != nil {
		return nil, err
	}
	return r.ResolveIdentifier(ctx, id)
}

// ResolveHost returns the tenant whose domain is host. The port is ignored.
func (r *Resolver) ResolveHost(ctx context.Context, host string) (*Tenant, error) {
	id, err := Host(host)
	if err != nil {
		return nil, err
	}
	return r.ResolveIdentifier(ctx, id)
}

// ResolveID returns the tenant with the given id.
func (r *Resolver) ResolveID(ctx context.Context, tenantID uuid.UUID) (*Tenant, error) {
	return r.ResolveIdentifier(ctx, ID(tenantID))
}

// ResolveIdentifier returns the tenant for id.
//
// Errors: ErrNotFound when no tenant matches, ErrInactive for disabled tenants
// when configured, ErrUnavailable while the store is isolated, ErrBackend
// joined with the cause for store failures, and ctx.Err() when ctx ends first.
func (r *Resolver) ResolveIdentifier(ctx context.Context, id Identifier) (*Tenant, error) {
	t, err := r.cache.GetOrLoadTTL(ctx, id.Key(), func(ctx context.Context) (*Tenant, time.Duration, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	if r.cfg.RejectInactive && !t.Active {
		return nil, ErrInactive
	}
	return t, nil
}

// load performs the guarded store lookup and classifies its error.
// A tenant served from the fallback store is cached only until the breaker
// admits trial calls again; store answers use the configured TTL.
func (r *Resolver) load(ctx context.Context, id Identifier) (*Tenant, time.Duration, error) {
	t, stale, err := r.caller.CallStale(ctx, id.Key(), func(ctx context.Context) (*Tenant, error) {
		t, err := r.store.Lookup(ctx, id)
		if err == nil && t == nil {
			return nil, ErrNotFound
		}
		return t, err
	})

	switch {
	case err == nil && stale:
		return t, r.cfg.Breaker.OpenTimeout, nil
	case err == nil:
		return t, 0, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidIdentifier):
		return nil, 0, err
	case breaker.IsRejection(err):
		r.opts.logger.WarnContext(ctx, "tenant store isolated", "identifier", id.Key(), "error", err)
		return nil, 0, errors.Join(ErrUnavailable, err)
	default:
		r.opts.logger.ErrorContext(ctx, "tenant lookup failed", "identifier", id.Key(), "error", err)
		return nil, 0, errors.Join(ErrBackend, err)
	}
}

// Invalidate drops the cached tenant for id, in memory and in the fallback
// store. A lookup already in flight is not cancelled.
func (r *Resolver) Invalidate(id Identifier) {
	r.cache.Invalidate(id.Key())
	if err := r.caller.Forget(context.Background(), id.Key()); err != nil {
		r.opts.logger.Warn("failed to drop fallback tenant", "identifier", id.Key(), "error", err)
	}
}

// InvalidateTenant drops every cached identifier of t: slug, domain and id.
func (r *Resolver) InvalidateTenant(t *Tenant) {
	if t == nil {
		return
	}
	for _, id := range identifiersOf(t) {
		r.Invalidate(id)
	}
}

// Warm resolves slugs concurrently so the first requests hit the cache.
// Unknown slugs are skipped; the first other error is returned.
func (r *Resolver) Warm(ctx context.Context, slugs ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.WarmConcurrency)

	for _, slug := range slugs {
		g.Go(func() error {
			_, err := r.Resolve(ctx, slug)
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInactive) {
				r.opts.logger.WarnContext(ctx, "skipping tenant warm-up", "slug", slug, "error", err)
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// HealthCheck reports ErrUnavailable while the store breaker is open.
// Its signature matches health.CheckFunc.
func (r *Resolver) HealthCheck(context.Context) error {
	if r.breaker.State() == breaker.StateOpen {
		return ErrUnavailable
	}
	return nil
}

// Breaker returns the breaker guarding the store.
func (r *Resolver) Breaker() *breaker.Breaker {
	return r.breaker
}

// Cache returns the underlying tenant cache.
func (r *Resolver) Cache() *cache.Memory[string, *Tenant] {
	return r.cache
}

// Stats returns a snapshot of cache, breaker and caller counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Cache:   r.cache.Stats(),
		Breaker: r.breaker.Stats(),
		Caller:  r.caller.Stats(),
	}
}

// Close stops the cache sweep.
func (r *Resolver) Close() error {
	return r.cache.Close()
}
