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
	DataDir    string // Base directory for the databases (always absolute)
	Port       int
	DevMode    bool
	LogLevel   string
	SessionTTL time.Duration

	// Market-data provider (EOD Historical Data)
	EODHDBaseURL  string
	EODHDAPIToken string

	Backup *BackupConfig
}

// BackupConfig holds cloud backup configuration. Backups are disabled
// unless a bucket is configured.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Custom S3-compatible endpoint; empty = AWS default
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Retention       int    // Number of archives to keep
	Schedule        string // Cron spec for the nightly backup job
}

// Enabled reports whether cloud backups are configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STOCKWATCH_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8000),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 14*24*time.Hour),
		EODHDBaseURL:  getEnv("EODHD_BASE_URL", "https://eodhistoricaldata.com"),
		EODHDAPIToken: getEnv("EODHD_API_TOKEN", ""),
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Retention:       getEnvAsInt("BACKUP_RETENTION", 14),
			Schedule:        getEnv("BACKUP_SCHEDULE", "30 2 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.EODHDAPIToken == "" && !c.DevMode {
		return fmt.Errorf("EODHD_API_TOKEN is required (set DEV_MODE=true to run without a provider token)")
	}
	if c.Backup.Enabled() {
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup bucket configured but BACKUP_ACCESS_KEY_ID / BACKUP_SECRET_ACCESS_KEY missing")
		}
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
