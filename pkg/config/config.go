package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvLogLevel           = "STOREFRONT_LOG_LEVEL"
	EnvBackendBaseURL     = "STOREFRONT_BACKEND_BASE_URL"
	EnvBackendTimeout     = "STOREFRONT_BACKEND_TIMEOUT"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvSessionIdleTTL     = "STOREFRONT_SESSION_IDLE_TTL"
	EnvAdminCredential    = "STOREFRONT_ADMIN_CREDENTIAL"
	EnvCheckoutSubmitRate = "STOREFRONT_CHECKOUT_SUBMIT_LIMIT"
)

type Config struct {
	App            AppConfig
	Backend        BackendConfig
	Session        SessionConfig
	Redis          RedisConfig
	AdminRateLimit AdminRateLimitConfig
	Checkout       CheckoutConfig
	Metrics        MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// Locale drives catalog collation and price formatting.
	Locale string `envconfig:"STOREFRONT_LOCALE" default:"ru"`
	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BackendConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"20s"`
	// AdminCredential is only read by cmd/inventory-sync.
	AdminCredential string `envconfig:"STOREFRONT_ADMIN_CREDENTIAL"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"2h"`
	PruneInterval time.Duration `envconfig:"STOREFRONT_SESSION_PRUNE_INTERVAL" default:"5m"`
}

// RedisConfig is optional; admin login throttling is disabled without a URL.
type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type AdminRateLimitConfig struct {
	LoginWindow  time.Duration `envconfig:"STOREFRONT_ADMIN_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit int           `envconfig:"STOREFRONT_ADMIN_LOGIN_IP_LIMIT" default:"10"`

	// LoginCredentialLimit counts attempts per credential hash.
	LoginCredentialLimit int `envconfig:"STOREFRONT_ADMIN_LOGIN_CREDENTIAL_LIMIT" default:"5"`
}

type CheckoutConfig struct {
	SubmitLimit  int           `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_LIMIT" default:"5"`
	SubmitWindow time.Duration `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_WINDOW" default:"1m"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs error
	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", EnvBackendBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = multierr.Append(errs, fmt.Errorf("%s must be an http(s) url", EnvBackendBaseURL))
		}
	}
	if c.Backend.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be non-negative", EnvBackendTimeout))
	}
	if c.Session.IdleTTL <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvSessionIdleTTL))
	}
	if c.Checkout.SubmitLimit < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be non-negative", EnvCheckoutSubmitRate))
	}
	if c.Redis.Enabled() && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		errs = multierr.Append(errs, errors.New(EnvRedisURL+" must use the redis:// or rediss:// scheme"))
	}
	return errs
}
