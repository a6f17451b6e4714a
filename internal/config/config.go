package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	DatabasePath string
	LogLevel     string

	// Principal credentials. The deployer (owner) and the trusted backend
	// are fixed at startup; there is no role transfer.
	OwnerAPIKey   string
	BackendAPIKey string

	// Optional oracle reference pre-seeded at startup. The owner can still
	// replace it at runtime via the API.
	OracleURL string

	// Optional webhook for out-of-band notifications. Empty disables the
	// dispatcher.
	NotifyWebhookURL string

	// Cron schedules for the embedded trusted-backend driver.
	RiskRefreshSchedule    string
	RebalanceCycleSchedule string
	BackgroundJobsEnabled  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnvAsInt("PORT", 8080),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		DatabasePath:           getEnv("DATABASE_PATH", "./data/ledger.db"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		OwnerAPIKey:            getEnv("OWNER_API_KEY", ""),
		BackendAPIKey:          getEnv("BACKEND_API_KEY", ""),
		OracleURL:              getEnv("ORACLE_URL", ""),
		NotifyWebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
		RiskRefreshSchedule:    getEnv("RISK_REFRESH_SCHEDULE", "@hourly"),
		RebalanceCycleSchedule: getEnv("REBALANCE_CYCLE_SCHEDULE", "@every 30m"),
		BackgroundJobsEnabled:  getEnvAsBool("BACKGROUND_JOBS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.OwnerAPIKey == "" {
		return fmt.Errorf("OWNER_API_KEY is required")
	}
	if c.BackendAPIKey == "" {
		return fmt.Errorf("BACKEND_API_KEY is required")
	}
	if c.OwnerAPIKey == c.BackendAPIKey {
		return fmt.Errorf("OWNER_API_KEY and BACKEND_API_KEY must differ")
	}
	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
