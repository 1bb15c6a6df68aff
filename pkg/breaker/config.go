package breaker

import "time"

// Config holds the breaker thresholds.
// Fields carry env tags so the struct can be embedded in an application config.
type Config struct {
	// Consecutive failures in Closed that open the circuit.
	FailureThreshold int `env:"FAILURE_THRESHOLD" envDefault:"5"`

	// Consecutive trial successes in HalfOpen that close the circuit.
	SuccessThreshold int `env:"SUCCESS_THRESHOLD" envDefault:"2"`

	// How long the circuit stays open before admitting trial calls.
	OpenTimeout time.Duration `env:"OPEN_TIMEOUT" envDefault:"60s"`

	// Maximum number of concurrent trial calls in HalfOpen.
	HalfOpenMaxCalls int `env:"HALF_OPEN_MAX_CALLS" envDefault:"1"`
}

// DefaultConfig returns the configuration used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// withDefaults replaces non-positive fields with their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	return c
}
