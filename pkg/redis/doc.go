// Package redis opens the go-redis client used as the last-known-good store
// behind the tenant resolver.
//
// It wraps [github.com/redis/go-redis/v9] with URL validation, pool settings
// from [Config] and retries during startup.
//
// # Configuration
//
// [Config] is parsed from the environment under the "REDIS_" prefix:
//
//	REDIS_URL            - redis:// or rediss:// URL; empty disables Redis
//	REDIS_POOL_SIZE      - Maximum number of connections (default: 10)
//	REDIS_MIN_IDLE_CONNS - Minimum idle connections (default: 2)
//	REDIS_MAX_IDLE_TIME  - Maximum connection idle time (default: 10m)
//	REDIS_DIAL_TIMEOUT   - Dial timeout (default: 5s)
//	REDIS_READ_TIMEOUT   - Read timeout (default: 1s)
//	REDIS_WRITE_TIMEOUT  - Write timeout (default: 1s)
//	REDIS_RETRY_ATTEMPTS - Connection attempts (default: 3)
//	REDIS_RETRY_INTERVAL - Base retry interval (default: 2s)
//
// # Usage
//
//	client, err := redis.Open(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	fallback := cache.NewRedis[*tenant.Tenant](client, nil, cache.WithPrefix("tenant"))
//
// [Healthcheck] returns a check for the readiness endpoint.
//
// # Errors
//
//   - [ErrEmptyConnectionURL] - Empty connection URL provided
//   - [ErrFailedToParseURL] - Invalid connection URL format or scheme
//   - [ErrConnectionFailed] - Connection failed after all retry attempts
//   - [ErrHealthcheckFailed] - Redis ping failed
package redis
