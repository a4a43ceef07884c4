package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/medsupply-storefront/internal/domain/checkout"
)

const defaultAddr = "127.0.0.1:8080"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds the complete agent configuration, loadable from environment
// variables (STOREFRONT_ prefix), flags, a .env file, or YAML config files.
type Config struct {
	Addr      string `default:"127.0.0.1:8080" usage:"Local API listen address"`
	RemoteURL string `usage:"Base URL of the remote catalog/order service (STOREFRONT_REMOTE_URL)" flag:"remote-url"`
	Store     StoreConfig
	Catalog   CatalogConfig
	Checkout  CheckoutConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StoreConfig selects the durable key-value store.
type StoreConfig struct {
	Driver        string `default:"memory" usage:"State store driver: memory, redis or postgres"`
	RedisAddr     string `default:"localhost:6379" usage:"Redis address" flag:"redis-addr"`
	RedisPassword string `usage:"Redis password" flag:"redis-password"`
	RedisDB       int    `default:"0" usage:"Redis database number" flag:"redis-db"`
	RedisPrefix   string `default:"storefront:" usage:"Prefix for every Redis key" flag:"redis-prefix"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (STOREFRONT_STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// CatalogConfig controls the catalog engine.
type CatalogConfig struct {
	RefreshInterval time.Duration `default:"5s" usage:"Background catalog refresh period" flag:"catalog-refresh"`
	PriceCeiling    float64       `default:"1000" usage:"Upper bound of the price filter" flag:"price-ceiling"`
}

// CheckoutConfig controls shipping pricing.
type CheckoutConfig struct {
	FreeShippingThreshold float64 `default:"300" usage:"Subtotal above which shipping is free" flag:"free-shipping-threshold"`
	FlatShippingRate      float64 `default:"25" usage:"Shipping cost at or below the threshold" flag:"flat-shipping-rate"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Pricing converts the checkout settings to pricing rules.
func (c CheckoutConfig) Pricing() checkout.Pricing {
	return checkout.Pricing{
		FreeShippingThreshold: decimal.NewFromFloat(c.FreeShippingThreshold),
		FlatShippingRate:      decimal.NewFromFloat(c.FlatShippingRate),
	}
}

// LoadConfig loads configuration from a .env file, environment variables and
// YAML config files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"storefront.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.RemoteURL == "" {
		return errors.New("remote URL is required: set STOREFRONT_REMOTE_URL")
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres store: set STOREFRONT_STORE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Catalog.RefreshInterval <= 0 {
		return errors.Errorf("catalog refresh interval must be positive, got %s", c.Catalog.RefreshInterval)
	}
	if c.Checkout.FreeShippingThreshold < 0 || c.Checkout.FlatShippingRate < 0 {
		return errors.New("shipping settings must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL, REDIS_ADDR and PORT to the
// STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Store.DatabaseURL = v
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && c.Store.RedisAddr == "localhost:6379" {
		c.Store.RedisAddr = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "127.0.0.1:" + port
	}
}
