// Package resilient combines a circuit breaker, retries, a per-attempt
// timeout and a last-known-good fallback store around calls to one dependency.
//
//	b := breaker.New(cfg.Breaker, breaker.WithName("tenant-store"))
//	c := resilient.New[*tenant.Tenant](b, cache.NewRedis[*tenant.Tenant](client, nil),
//	    resilient.WithTimeout(2*time.Second),
//	    resilient.WithRetry(resilient.RetryPolicy{
//	        MaxAttempts: 3,
//	        Strategy:    resilient.Exponential,
//	        BaseDelay:   50 * time.Millisecond,
//	        MaxDelay:    time.Second,
//	    }),
//	)
//
//	t, err := c.Call(ctx, "slug:acme", func(ctx context.Context) (*tenant.Tenant, error) {
//	    return store.Lookup(ctx, id)
//	})
//
// Calls rejected by the breaker ([breaker.ErrOpen], [breaker.ErrTooManyTrialCalls])
// are not retried. If a fallback store is configured they are answered from it
// when it holds a value for the key.
package resilient
