package dataguard

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/dataguard/pkg/db"
	"github.com/dmitrymomot/dataguard/pkg/logger"
	"github.com/dmitrymomot/dataguard/pkg/redis"
	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "DATAGUARD_"

// Config is the complete service configuration.
type Config struct {
	Log    logger.Config `envPrefix:"LOG_"`
	HTTP   HTTPConfig    `envPrefix:"HTTP_"`
	DB     db.Config     `envPrefix:"DATABASE_"`
	Redis  redis.Config  `envPrefix:"REDIS_"`
	Tenant tenant.Config `envPrefix:"TENANT_"`

	// YAML tenant fixtures used when no database URL is configured.
	TenantsFile string `env:"TENANTS_FILE"`

	// Slugs resolved on startup so the first requests hit a warm cache.
	WarmTenants []string `env:"WARM_TENANTS" envSeparator:","`

	// Prefix of the Redis keys holding last-known-good tenants.
	FallbackPrefix string `env:"FALLBACK_PREFIX" envDefault:"dataguard:tenant"`
}

// HTTPConfig holds server settings.
type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Honor X-Forwarded-Host and Forwarded when resolving tenants by host.
	TrustForwardedHost bool `env:"TRUST_FORWARDED_HOST"`

	// Hosts directly under this domain resolve tenants by slug.
	TenantBaseDomain string `env:"TENANT_BASE_DOMAIN"`
}

// LoadConfig reads Config from DATAGUARD_* environment variables.
//
//	DATAGUARD_DATABASE_CONN_URL=postgres://localhost/app
//	DATAGUARD_REDIS_URL=redis://localhost:6379/0
//	DATAGUARD_TENANT_BREAKER_FAILURE_THRESHOLD=5
func LoadConfig() (Config, error) {
	return env.ParseAsWithOptions[Config](env.Options{Prefix: EnvPrefix})
}
