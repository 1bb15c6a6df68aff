// Package tenant resolves tenant identity and configuration for every request.
//
// A [Tenant] is looked up by slug, host or id through a [Resolver]. The
// resolver keeps tenants in a keyed cache with absolute and idle expiry,
// collapses concurrent cold lookups for the same identifier into one store
// call, and guards the [Store] with a circuit breaker:
//
//	store := tenant.NewPostgresStore(pool)
//	r := tenant.NewResolver(store, cfg.Tenant, tenant.WithLogger(log))
//	defer r.Close()
//
//	t, err := r.Resolve(ctx, "acme")
//	switch {
//	case errors.Is(err, tenant.ErrNotFound):
//	    // 404
//	case errors.Is(err, tenant.ErrUnavailable):
//	    // 503, the store is isolated
//	}
//
// Resolved tenants are shared by pointer and must not be modified. After an
// update in the store call [Resolver.InvalidateTenant].
//
// # Stores
//
// [PostgresStore] reads the tenants table created by [Migrations].
// [StaticStore] keeps tenants in memory and can be loaded from YAML with
// [LoadStaticStore], which is handy for development and tests.
//
// # Request Context
//
// [WithContext] and [FromContext] carry the resolved tenant through a request.
// [IDExtractor] and [SlugExtractor] add it to log records.
package tenant
