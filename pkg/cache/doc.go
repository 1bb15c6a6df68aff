// Package cache provides a keyed in-memory cache with stampede protection and
// a Redis-backed store sharing the same [Cache] interface.
//
// # Keyed Cache
//
// [Memory] is generic over key and value types. Entries carry an absolute TTL
// and, optionally, an idle timeout that is reset on every access. Expired
// entries are dropped lazily on access and by a background sweep; a maximum
// entry count turns on LRU eviction:
//
//	c := cache.NewMemory[string, *tenant.Tenant](
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithIdleTimeout(3 * time.Minute),
//	    cache.WithMaxEntries(10000),
//	)
//	defer c.Close()
//
// # Single-Flight Loading
//
// [Memory.GetOrLoad] runs the loader at most once per key at a time.
// Concurrent callers for the same key wait on the load that is already in
// flight and all receive its result:
//
//	t, err := c.GetOrLoad(ctx, "slug:acme", func(ctx context.Context) (*tenant.Tenant, error) {
//	    return store.Lookup(ctx, id)
//	})
//
// Failed loads are never cached. [Memory.Invalidate] drops an entry but does
// not cancel a load in flight; that load still stores its result.
//
// # Redis Store
//
// [Redis] keeps values in Redis, encoded with a [Marshaler] (JSON by default).
// It is used as the last-known-good store for the resilient caller.
//
// # Errors
//
//   - [ErrNotFound]: key does not exist or has expired
//   - [ErrClosed]: operation on a closed cache
//   - [ErrMarshal], [ErrUnmarshal]: value encoding failed
//   - [ErrLoaderPanic]: the loader panicked
package cache
