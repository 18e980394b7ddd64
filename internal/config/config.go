package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Vault     VaultConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

// VaultConfig holds the security-sensitive configuration: PAN master key
// material, session signing secret, and the pre-shared secrets accepted on
// scheduled and service-to-service routes.
type VaultConfig struct {
	MasterKeyHex  string
	SessionSecret string
	CronSecret    string
	ServiceSecret string
	SessionTTL    time.Duration
	TokenLifetime time.Duration
	KeyLifetime   time.Duration
}

// WebhookConfig holds outbound webhook delivery configuration
type WebhookConfig struct {
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

// RateLimitConfig holds fixed-window rate limiter configuration
type RateLimitConfig struct {
	Window time.Duration
	Limit  int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "panvault"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Vault: VaultConfig{
			MasterKeyHex:  getEnv("PAN_MASTER_KEY", ""),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			CronSecret:    getEnv("CRON_SECRET", ""),
			ServiceSecret: getEnv("SERVICE_SECRET", ""),
			SessionTTL:    getEnvAsDuration("SESSION_TTL", "12h"),
			TokenLifetime: getEnvAsDuration("TOKEN_LIFETIME", "8760h"), // 1 year
			KeyLifetime:   getEnvAsDuration("KEY_LIFETIME", "720h"),    // 30 days
		},
		Webhook: WebhookConfig{
			Timeout:     getEnvAsDuration("WEBHOOK_TIMEOUT", "10s"),
			WorkerCount: getEnvAsInt("WEBHOOK_WORKERS", 4),
			QueueSize:   getEnvAsInt("WEBHOOK_QUEUE_SIZE", 256),
		},
		RateLimit: RateLimitConfig{
			Window: getEnvAsDuration("RATE_LIMIT_WINDOW", "60s"),
			Limit:  getEnvAsInt("RATE_LIMIT_MAX", 1000),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if c.Vault.MasterKeyHex != "" {
		key, err := hex.DecodeString(c.Vault.MasterKeyHex)
		if err != nil {
			return fmt.Errorf("PAN_MASTER_KEY must be hex encoded: %w", err)
		}
		if len(key) < 32 {
			return fmt.Errorf("PAN_MASTER_KEY must be at least 32 bytes, got %d", len(key))
		}
	}

	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	if c.Webhook.WorkerCount <= 0 {
		return fmt.Errorf("webhook worker count must be positive, got %d", c.Webhook.WorkerCount)
	}
	if c.Webhook.QueueSize <= 0 {
		return fmt.Errorf("webhook queue size must be positive, got %d", c.Webhook.QueueSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return nil
}

// MasterKey returns the decoded PAN master key material.
func (c *VaultConfig) MasterKey() ([]byte, error) {
	if c.MasterKeyHex == "" {
		return nil, fmt.Errorf("PAN_MASTER_KEY is not configured")
	}
	key, err := hex.DecodeString(c.MasterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid PAN_MASTER_KEY: %w", err)
	}
	return key, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to parsing the default if provided value is invalid
		duration, err = time.ParseDuration(defaultValue)
		if err != nil {
			return 0
		}
	}
	return duration
}
