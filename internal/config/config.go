package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the runtime settings of the storefront.
type Config struct {
	AppPort             string
	DatabaseDriver      string
	DatabaseDSN         string
	RedisURL            string
	RabbitMQURL         string
	JWTSecret           string
	LogLevel            string
	MediaRoot           string
	CartTTL             time.Duration
	DefaultShippingCost decimal.Decimal
	PendingOrderTTL     time.Duration
	SweepInterval       time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=mindvibe port=5432 sslmode=disable")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("CART_TTL", "168h")
	v.SetDefault("DEFAULT_SHIPPING_COST", "0.00")
	v.SetDefault("PENDING_ORDER_TTL", "0s")
	v.SetDefault("SWEEP_INTERVAL", "15m")
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	shipping, err := decimal.NewFromString(v.GetString("DEFAULT_SHIPPING_COST"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_SHIPPING_COST: %w", err)
	}

	cfg := &Config{
		AppPort:             v.GetString("APP_PORT"),
		DatabaseDriver:      v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		RedisURL:            v.GetString("REDIS_URL"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		MediaRoot:           v.GetString("MEDIA_ROOT"),
		CartTTL:             v.GetDuration("CART_TTL"),
		DefaultShippingCost: shipping,
		PendingOrderTTL:     v.GetDuration("PENDING_ORDER_TTL"),
		SweepInterval:       v.GetDuration("SWEEP_INTERVAL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DefaultShippingCost.IsNegative() {
		return fmt.Errorf("DEFAULT_SHIPPING_COST must not be negative")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PendingOrderTTL > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive when PENDING_ORDER_TTL is set")
	}
	return nil
}

// SweeperEnabled reports whether stale pending orders should be expired.
func (c *Config) SweeperEnabled() bool {
	return c.PendingOrderTTL > 0
}
