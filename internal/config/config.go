// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      int
	DataDir   string // Base directory for the SQLite database, always absolute
	LogLevel  string
	LogPretty bool
	DevMode   bool

	// Optimization engine
	RiskFreeRate  float64 // Annual risk-free rate used in Sharpe ratios
	MaxIterations int     // Solver iteration cap per solve

	// Market data
	YahooBaseURL  string        // Override for the quote client base URL (tests)
	PriceCacheTTL time.Duration // How long cached price history stays fresh

	// Scheduled jobs. Cron specs are six-field (with seconds).
	PriceRefreshSchedule string // cron spec for the price cache refresh job
	HistoryPruneSchedule string // cron spec for the run history retention job
	HistoryRetentionDays int    // Runs older than this many days are pruned
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		Port:      getEnvAsInt("PORT", 8000),
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		RiskFreeRate:  getEnvAsFloat("RISK_FREE_RATE", 0.0),
		MaxIterations: getEnvAsInt("MAX_ITERATIONS", 1000),

		YahooBaseURL:  getEnv("YAHOO_BASE_URL", ""),
		PriceCacheTTL: time.Duration(getEnvAsInt("PRICE_CACHE_TTL_HOURS", 24)) * time.Hour,

		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "0 0 */6 * * *"),
		HistoryPruneSchedule: getEnv("HISTORY_PRUNE_SCHEDULE", "0 0 3 * * *"),
		HistoryRetentionDays: getEnvAsInt("HISTORY_RETENTION_DAYS", 90),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("price cache TTL must be positive, got %s", c.PriceCacheTTL)
	}
	if c.HistoryRetentionDays < 1 {
		return fmt.Errorf("history retention days must be positive, got %d", c.HistoryRetentionDays)
	}
	return nil
}

// DatabasePath returns the path of the service's SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "frontier.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
