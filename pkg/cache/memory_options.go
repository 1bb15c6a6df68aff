package cache

import "time"

// MemoryOption configures the in-memory cache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now             func() time.Time
	defaultTTL      time.Duration
	idleTimeout     time.Duration
	cleanupInterval time.Duration
	maxEntries      int
}

func defaultMemoryOptions() *memoryOptions {
	return &memoryOptions{
		now:             time.Now,
		defaultTTL:      time.Hour,
		idleTimeout:     0, // 0 = disabled
		cleanupInterval: time.Minute,
		maxEntries:      0, // 0 = unlimited
	}
}

// WithDefaultTTL sets the absolute expiration applied to loaded entries and
// to Set calls with a zero TTL. A negative value disables absolute expiry.
// Default: 1 hour.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.defaultTTL = d
	}
}

// WithIdleTimeout expires entries that have not been read or written for d,
// independently of their absolute TTL. Zero disables idle expiry.
// Default: 0.
func WithIdleTimeout(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.idleTimeout = d
	}
}

// WithCleanupInterval sets how often the background sweep removes expired
// entries. Zero disables the sweep; expiry is then only checked on access.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries caps the number of entries. When the cap is reached the
// least recently used entry is evicted. Zero means unlimited.
// Default: 0.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = n
	}
}

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}
