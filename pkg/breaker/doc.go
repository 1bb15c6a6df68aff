// Package breaker implements a three-state circuit breaker.
//
// A [Breaker] wraps calls to a single dependency. After FailureThreshold
// consecutive failures the circuit opens and calls are rejected with [ErrOpen]
// without reaching the dependency. Once OpenTimeout has passed, a limited
// number of trial calls are let through; enough consecutive successes close
// the circuit, any failure opens it again.
//
//	b := breaker.New(breaker.Config{
//	    FailureThreshold: 5,
//	    SuccessThreshold: 2,
//	    OpenTimeout:      30 * time.Second,
//	    HalfOpenMaxCalls: 3,
//	}, breaker.WithName("tenant-store"))
//
//	t, err := breaker.Call(ctx, b, func(ctx context.Context) (*tenant.Tenant, error) {
//	    return store.Lookup(ctx, id)
//	})
//	if breaker.IsRejection(err) {
//	    // dependency is considered down
//	}
//
// The mutex guards bookkeeping only. The wrapped operation always runs
// outside of it, and the outcome of a call that started before a transition
// is not applied to the new state.
package breaker
