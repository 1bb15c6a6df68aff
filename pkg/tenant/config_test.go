package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/breaker"
)

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	t.Run("zero config uses defaults", func(t *testing.T) {
		t.Parallel()

		want := DefaultConfig()
		want.RejectInactive = false
		require.Equal(t, want, Config{}.withDefaults())
	})

	t.Run("set fields are kept", func(t *testing.T) {
		t.Parallel()

		cfg := Config{
			CacheTTL:       time.Minute,
			IdleTimeout:    -1,
			LookupTimeout:  -1,
			RetryBaseDelay: time.Second,
			Breaker:        breaker.Config{FailureThreshold: 3},
		}.withDefaults()

		require.Equal(t, time.Minute, cfg.CacheTTL)
		require.Equal(t, time.Duration(-1), cfg.IdleTimeout, "negative disables idle expiry")
		require.Equal(t, time.Duration(-1), cfg.LookupTimeout, "negative disables the lookup timeout")
		require.Equal(t, time.Second, cfg.RetryBaseDelay)
		require.Equal(t, 3, cfg.Breaker.FailureThreshold)
		require.Equal(t, breaker.DefaultConfig().OpenTimeout, cfg.Breaker.OpenTimeout)
	})
}
