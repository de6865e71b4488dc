// Package container provides dependency injection and lifecycle management
// for the expense approval service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/pkg/database"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Exchange rate provider configuration
	Rates RatesConfig

	// In-process cache configuration
	Cache CacheConfig

	// Server configuration
	Server ServerConfig

	// Metrics configuration
	Metrics MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite3 or pgx
	Driver string

	// Path to SQLite database file
	Path string

	// DSN for PostgreSQL
	DSN string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// RatesConfig holds exchange rate API settings.
type RatesConfig struct {
	// BaseURL contains {BASE_CURRENCY}
	BaseURL string

	// Timeout bounds a single lookup
	Timeout time.Duration

	// CacheTTL is how long a fetched rate table is reused
	CacheTTL time.Duration

	// CacheMaxCost bounds the number of cached base currencies
	CacheMaxCost int64
}

// CacheConfig holds rule cache settings.
type CacheConfig struct {
	RuleEntries int64
	RuleTTL     time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics and records request metrics
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          database.DriverSQLite,
			Path:            "data/expense.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Rates: RatesConfig{
			BaseURL:      "https://api.exchangerate-api.com/v4/latest/{BASE_CURRENCY}",
			Timeout:      5 * time.Second,
			CacheTTL:     time.Hour,
			CacheMaxCost: 256,
		},
		Cache: CacheConfig{
			RuleEntries: 1024,
			RuleTTL:     10 * time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	// Validate database configuration
	if c.Database.Driver != database.DriverSQLite && c.Database.Driver != database.DriverPostgres {
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	// Validate rate provider configuration
	if c.Rates.BaseURL == "" {
		return fmt.Errorf("rates.base_url is required")
	}

	// Validate cache configuration
	if c.Cache.RuleEntries <= 0 {
		return fmt.Errorf("cache.rule_entries must be positive")
	}

	return nil
}
