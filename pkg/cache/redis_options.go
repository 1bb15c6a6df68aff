package cache

import "time"

// RedisOption configures the Redis cache.
type RedisOption func(*redisOptions)

type redisOptions struct {
	prefix     string
	defaultTTL time.Duration
	scanCount  int64
}

func defaultRedisOptions() *redisOptions {
	return &redisOptions{
		defaultTTL: 24 * time.Hour,
		scanCount:  100,
	}
}

// WithRedisDefaultTTL sets the expiration used when Set is called with a zero TTL.
// Fallback copies are meant to outlive the in-memory entries they back up,
// so the default is longer than the in-memory one.
// Default: 24 hours.
func WithRedisDefaultTTL(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.defaultTTL = d
	}
}

// WithPrefix namespaces every key as "{prefix}:{key}" so several caches can
// share one Redis database.
func WithPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.prefix = prefix
	}
}

// WithScanCount sets the COUNT hint used by Clear when walking prefixed keys.
// Default: 100.
func WithScanCount(n int64) RedisOption {
	return func(o *redisOptions) {
		if n > 0 {
			o.scanCount = n
		}
	}
}
