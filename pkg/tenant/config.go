package tenant

import (
	"time"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
)

// Config holds resolver settings. It is meant to be parsed from the
// environment with github.com/caarlos0/env/v11 under a "TENANT_" prefix.
type Config struct {
	// Absolute lifetime of a cached tenant.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Cached tenants not accessed for this long are dropped.
	// Negative disables idle expiry.
	IdleTimeout time.Duration `env:"CACHE_IDLE_TIMEOUT" envDefault:"3m"`

	// Maximum number of cached identifiers.
	MaxEntries int `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`

	// Timeout of a single store lookup. Negative disables it.
	LookupTimeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"2s"`

	// Store lookups attempted per resolution, the first one included.
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"2"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"50ms"`

	// Number of concurrent lookups used by Warm.
	WarmConcurrency int `env:"WARM_CONCURRENCY" envDefault:"8"`

	// Resolve disabled tenants to ErrInactive.
	RejectInactive bool `env:"REJECT_INACTIVE" envDefault:"true"`

	Breaker breaker.Config `envPrefix:"BREAKER_"`
}

// DefaultConfig returns the defaults used for zero fields.
func DefaultConfig() Config {
	return Config{
		CacheTTL:        5 * time.Minute,
		IdleTimeout:     3 * time.Minute,
		MaxEntries:      10000,
		LookupTimeout:   2 * time.Second,
		RetryAttempts:   2,
		RetryBaseDelay:  50 * time.Millisecond,
		WarmConcurrency: 8,
		RejectInactive:  true,
		Breaker:         breaker.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheTTL == 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.LookupTimeout == 0 {
		c.LookupTimeout = d.LookupTimeout
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = d.RetryAttempts
	}
	if c.WarmConcurrency <= 0 {
		c.WarmConcurrency = d.WarmConcurrency
	}
	if c.Breaker == (breaker.Config{}) {
		c.Breaker = d.Breaker
	}
	if c.Breaker.OpenTimeout <= 0 {
		c.Breaker.OpenTimeout = d.Breaker.OpenTimeout
	}
	return c
}
