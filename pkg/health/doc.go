// Package health provides liveness and readiness probes.
//
// Checks are plain func(context.Context) error values, so the Postgres pool,
// the Redis client and the tenant resolver breaker plug in directly:
//
//	checks := health.Checks{
//	    "postgres": db.Healthcheck(pool),
//	    "redis":    redis.Healthcheck(client),
//	    "tenants":  resolver.HealthCheck,
//	}
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(checks,
//	    health.WithOptional("redis"),
//	    health.WithTimeout(3*time.Second),
//	))
//
// Checks run concurrently under one deadline. A failing optional check
// reports "degraded" and keeps the probe at 200; any other failure answers
// 503. Responses are plain text unless JSON is requested with
// Accept: application/json or ?format=json.
package health
