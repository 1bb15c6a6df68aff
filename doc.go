// Package dataguard wires the data access layer of a multi-tenant GraphQL
// backend: tenant resolution with a stampede-proof cache, a circuit breaker
// around the tenant store and request-scoped batch loaders.
//
// # Quick Start
//
//	cfg, err := dataguard.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	core, err := dataguard.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	scope.RegisterEntity(core.Registry, "user", func(ctx context.Context, t *tenant.Tenant, ids []int64) (map[int64]*User, error) {
//	    return repo.UsersByIDs(ctx, t.ID, ids)
//	})
//
//	r := chi.NewRouter()
//	r.Use(core.Middleware()...)
//	r.Post("/graphql", graphqlHandler)
//
//	if err := core.Serve(ctx, r); err != nil {
//	    log.Fatal(err)
//	}
//
// Field resolvers then load through the request scope; loads issued within
// the same short window share one batch call:
//
//	u, ok, err := scope.LoadEntity[int64, *User](ctx, "user", id)
//
// # Configuration
//
// LoadConfig reads DATAGUARD_* environment variables. The tenant store is
// Postgres when DATAGUARD_DATABASE_CONN_URL is set and otherwise the YAML
// file named by DATAGUARD_TENANTS_FILE. Setting DATAGUARD_REDIS_URL keeps
// last-known-good tenants in Redis, served while the store breaker is open.
//
// # Packages
//
//   - pkg/cache: TTL and LRU cache with single-flight loads, Redis store
//   - pkg/breaker: circuit breaker
//   - pkg/resilient: breaker, retry, timeout and fallback around one call
//   - pkg/tenant: identifiers, stores and the resolver
//   - pkg/loader: batch loader
//   - pkg/scope: per-request loaders keyed by entity kind
//   - pkg/metrics, pkg/health, pkg/logger: telemetry
//   - middlewares: net/http request pipeline
package dataguard
