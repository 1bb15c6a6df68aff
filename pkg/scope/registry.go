package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrymomot/dataguard/pkg/loader"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// EntityFunc fetches entities of one kind for a tenant by key.
type EntityFunc[K comparable, V any] func(ctx context.Context, t *tenant.Tenant, keys []K) (map[K]V, error)

// RelatedFunc fetches the children of a set of parent keys for a tenant.
type RelatedFunc[K comparable, V any] func(ctx context.Context, t *tenant.Tenant, parents []K) (map[K][]V, error)

// closer is what a scope keeps per kind: a *loader.Loader of some type.
type closer interface {
	Close()
	Stats() loader.Stats
}

type kindDef struct {
	build   func(ctx context.Context, t *tenant.Tenant, opts []loader.Option) closer
	opts    []loader.Option
	related bool
}

// Registry holds the entity kinds known to the application.
// It is built at startup and shared by every request scope.
type Registry struct {
	kinds    map[string]kindDef
	defaults []loader.Option
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry. opts apply to every loader created
// from it, before the per-kind options.
func NewRegistry(opts ...loader.Option) *Registry {
	return &Registry{
		kinds:    make(map[string]kindDef),
		defaults: opts,
	}
}

// RegisterEntity registers a one-to-one kind. Registering a kind twice panics.
//
// Example:
//
//	scope.RegisterEntity(reg, "user", func(ctx context.Context, t *tenant.Tenant, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
//	    return users.ByIDs(ctx, t.ID, ids)
//	})
func RegisterEntity[K comparable, V any](reg *Registry, kind string, fn EntityFunc[K, V], opts ...loader.Option) {
	reg.register(kind, kindDef{
		opts: opts,
		build: func(ctx context.Context, t *tenant.Tenant, opts []loader.Option) closer {
			return loader.New(ctx, func(ctx context.Context, keys []K) (map[K]V, error) {
				return fn(ctx, t, keys)
			}, opts...)
		},
	})
}

// RegisterRelated registers a one-to-many kind. Registering a kind twice panics.
func RegisterRelated[K comparable, V any](reg *Registry, kind string, fn RelatedFunc[K, V], opts ...loader.Option) {
	reg.register(kind, kindDef{
		opts:    opts,
		related: true,
		build: func(ctx context.Context, t *tenant.Tenant, opts []loader.Option) closer {
			return loader.NewMany(ctx, func(ctx context.Context, parents []K) (map[K][]V, error) {
				return fn(ctx, t, parents)
			}, opts...)
		},
	})
}

func (r *Registry) register(kind string, def kindDef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.kinds[kind]; ok {
		panic(fmt.Sprintf("scope: entity kind %q registered twice", kind))
	}
	r.kinds[kind] = def
}

// Kinds returns the registered kind names.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	return kinds
}

func (r *Registry) lookup(kind string) (kindDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.kinds[kind]
	return def, ok
}
