package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrymomot/dataguard/pkg/loader"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// Scope is the per-request data access context: the resolved tenant and one
// loader per entity kind, created on first use.
type Scope struct {
	ctx     context.Context
	reg     *Registry
	tenant  *tenant.Tenant
	loaders map[string]closer
	mu      sync.Mutex
	closed  bool
}

// New creates a scope for one request. Loaders run their batches on ctx.
func New(ctx context.Context, reg *Registry, t *tenant.Tenant) *Scope {
	return &Scope{
		ctx:     ctx,
		reg:     reg,
		tenant:  t,
		loaders: make(map[string]closer),
	}
}

// Tenant returns the tenant the scope was created for.
func (s *Scope) Tenant() *tenant.Tenant {
	return s.tenant
}

// Close closes every loader created by the scope. Loading through a closed
// scope panics with loader.ErrReused.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, l := range s.loaders {
		l.Close()
	}
}

// Stats returns the stats of every loader created so far, by kind.
func (s *Scope) Stats() map[string]loader.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]loader.Stats, len(s.loaders))
	for kind, l := range s.loaders {
		out[kind] = l.Stats()
	}
	return out
}

// get returns the loader for kind, creating it on first use.
func (s *Scope) get(kind string, related bool) (closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		panic(loader.ErrReused)
	}
	if l, ok := s.loaders[kind]; ok {
		return l, nil
	}

	def, ok := s.reg.lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if def.related != related {
		return nil, fmt.Errorf("%w: %q", ErrKindMismatch, kind)
	}

	opts := make([]loader.Option, 0, len(s.reg.defaults)+len(def.opts)+1)
	opts = append(opts, loader.WithName(kind))
	opts = append(opts, s.reg.defaults...)
	opts = append(opts, def.opts...)

	l := def.build(s.ctx, s.tenant, opts)
	s.loaders[kind] = l
	return l, nil
}

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope stored by WithScope.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// Tenant returns the tenant of the request scope in ctx.
func Tenant(ctx context.Context) (*tenant.Tenant, bool) {
	if s, ok := FromContext(ctx); ok && s.tenant != nil {
		return s.tenant, true
	}
	return tenant.FromContext(ctx)
}

// LoadEntity loads one entity of kind through the request scope's loader.
// The bool reports whether it exists.
func LoadEntity[K comparable, V any](ctx context.Context, kind string, key K) (V, bool, error) {
	var zero V

	s, ok := FromContext(ctx)
	if !ok {
		return zero, false, ErrNoScope
	}

	c, err := s.get(kind, false)
	if err != nil {
		return zero, false, err
	}
	l, ok := c.(*loader.Loader[K, V])
	if !ok {
		return zero, false, fmt.Errorf("%w: %q", ErrKindMismatch, kind)
	}
	return l.Load(ctx, key)
}

// LoadRelated loads the children of parent for a one-to-many kind.
// A parent without children yields an empty slice.
func LoadRelated[K comparable, V any](ctx context.Context, kind string, parent K) ([]V, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoScope
	}

	c, err := s.get(kind, true)
	if err != nil {
		return nil, err
	}
	l, ok := c.(*loader.Loader[K, []V])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKindMismatch, kind)
	}
	return loader.LoadMany(ctx, l, parent)
}
