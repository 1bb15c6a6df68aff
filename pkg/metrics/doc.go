// Package metrics exports dataguard telemetry to Prometheus.
//
// Breaker transitions and loader batches are pushed as they happen through
// hooks the components already expose:
//
//	m := metrics.New(reg)
//	b := breaker.New(cfg, breaker.WithOnStateChange(m.OnStateChange))
//	l := loader.New(ctx, fetch, loader.WithObserver(m))
//
// Counters the components keep themselves (breaker totals, cache hits and
// misses, caller retries) are read on scrape:
//
//	_ = m.RegisterBreaker(b)
//	_ = m.RegisterCache("tenant", resolver.Cache().Stats)
//
// All metric names are prefixed with the namespace, "dataguard" by default.
package metrics
