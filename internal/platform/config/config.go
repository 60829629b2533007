package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// Auth
	JWTSecret     string
	ServiceAPIKey string
	CronSecret    string

	// Expiry job
	ExpiryBatchLimit int
	ExpiryInterval   time.Duration // 0 disables the in-process scheduler

	// Per-customer lock acquisition budget inside a ledger transaction.
	LockTimeout time.Duration

	// Analytics / traffic shaping
	PosthogAPIKey  string
	RateLimit      string
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("SERVICE_API_KEY", "")
	viper.SetDefault("CRON_SECRET", "")
	viper.SetDefault("EXPIRY_BATCH_LIMIT", 100)
	viper.SetDefault("EXPIRY_INTERVAL", "0s")
	viper.SetDefault("LOCK_TIMEOUT", "3s")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("RATE_LIMIT", "60-M")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.ServiceAPIKey = viper.GetString("SERVICE_API_KEY")
	if cfg.ServiceAPIKey == "" {
		log.Println("Warning: SERVICE_API_KEY not set. Internal earn/reverse/adjustment endpoints will reject all callers.")
	}

	cfg.CronSecret = viper.GetString("CRON_SECRET")
	if cfg.CronSecret == "" {
		log.Println("Warning: CRON_SECRET not set. The expiry cron endpoint will reject all callers.")
	}

	cfg.ExpiryBatchLimit = viper.GetInt("EXPIRY_BATCH_LIMIT")
	if cfg.ExpiryBatchLimit <= 0 {
		cfg.ExpiryBatchLimit = 100
		log.Printf("Warning: Invalid EXPIRY_BATCH_LIMIT. Defaulting to %d.\n", cfg.ExpiryBatchLimit)
	}

	expiryIntervalStr := viper.GetString("EXPIRY_INTERVAL")
	expiryInterval, err := time.ParseDuration(expiryIntervalStr)
	if err != nil {
		expiryInterval = 0
		if expiryIntervalStr != "" {
			log.Printf("Warning: Invalid value for EXPIRY_INTERVAL ('%s'). In-process expiry scheduler disabled.\n", expiryIntervalStr)
		}
	}
	cfg.ExpiryInterval = expiryInterval

	lockTimeoutStr := viper.GetString("LOCK_TIMEOUT")
	lockTimeout, err := time.ParseDuration(lockTimeoutStr)
	if err != nil || lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
		log.Printf("Warning: Invalid value for LOCK_TIMEOUT ('%s'). Defaulting to %s.\n", lockTimeoutStr, lockTimeout.String())
	}
	cfg.LockTimeout = lockTimeout

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	origins := viper.GetString("ALLOWED_ORIGINS")
	for _, origin := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	return cfg, nil
}
