package loader

import "context"

// GroupFunc fetches the children of a set of parent keys in one call.
type GroupFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K][]V, error)

// NewMany creates a loader for one-to-many relations, such as the projects of
// a set of users. Use LoadMany to read from it.
func NewMany[K comparable, V any](ctx context.Context, fn GroupFunc[K, V], opts ...Option) *Loader[K, []V] {
	return New(ctx, BatchFunc[K, []V](fn), opts...)
}

// LoadMany returns the children of key. A key without children yields an
// empty, non-nil slice.
func LoadMany[K comparable, V any](ctx context.Context, l *Loader[K, []V], key K) ([]V, error) {
	vs, ok, err := l.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || vs == nil {
		return []V{}, nil
	}
	return vs, nil
}
