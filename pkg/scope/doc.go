// Package scope ties request-level data access together: the resolved tenant
// and one batch loader per entity kind.
//
// Entity kinds are registered once at startup:
//
//	reg := scope.NewRegistry(loader.WithObserver(metrics))
//	scope.RegisterEntity(reg, "user", usersByID)
//	scope.RegisterRelated(reg, "user.projects", projectsByOwner)
//
// Each request gets its own [Scope], usually from the RequestScope middleware,
// and resolvers load through it:
//
//	u, found, err := scope.LoadEntity[uuid.UUID, *User](ctx, "user", id)
//	ps, err := scope.LoadRelated[uuid.UUID, *Project](ctx, "user.projects", u.ID)
//
// Loaders are created on first use and closed with the scope, so nothing
// loaded for one request is visible to another.
package scope
