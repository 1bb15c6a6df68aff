// Package loader batches and memoizes per-key loads within one request.
//
// GraphQL field resolvers run independently and each asks for one object.
// A [Loader] collects the keys requested during a short window and fetches
// them with a single [BatchFunc] call:
//
//	owners := loader.New(ctx, func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
//	    return db.FetchByKeys(ctx, pool, `SELECT id, name FROM users WHERE id = ANY($1)`, ids, scanUser)
//	}, loader.WithWait(2*time.Millisecond), loader.WithMaxBatch(500))
//	defer owners.Close()
//
//	u, found, err := owners.Load(ctx, ownerID)
//
// # Flushing
//
// A batch is dispatched when the coalescing window ends (it restarts on every
// new key), when it reaches the size cap, or on an explicit [Loader.Flush].
// Each dispatch is exactly one call with the distinct keys registered since
// the previous one.
//
// # Results
//
// Keys missing from the returned map resolve to (zero, false, nil); for
// one-to-many loaders built with [NewMany], [LoadMany] returns an empty
// slice. Results are memoized for the loader's lifetime. A batch error is
// returned to every key in the batch and those keys are not memoized.
//
// Loaders are per request. Using one after [Loader.Close] panics with [ErrReused].
package loader
