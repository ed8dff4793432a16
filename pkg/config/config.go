// Package config loads habitpulse settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// DefaultUserID owns habits in single-user local mode.
const DefaultUserID = "00000000-0000-0000-0000-000000000001"

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	UserID    uuid.UUID

	// Database
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	// Insight feed cache; an empty RedisURL keeps the cache in memory.
	RedisURL         string
	InsightsCacheTTL time.Duration

	// Events; an empty RabbitMQURL publishes in-process only.
	RabbitMQURL           string
	EventsBreakerFailures int
	EventsBreakerTimeout  time.Duration

	// Worker
	WorkerHealthAddr    string
	GoalsApplyInterval  time.Duration
	WorkerStatsInterval time.Duration

	// MCP
	MCPAddr      string
	MCPAuthToken string

	// Adaptive goal policy
	AdaptiveWindowDays        int
	AdaptiveIncreaseThreshold int
	AdaptiveDecreaseThreshold int
	AdaptiveStepRatio         float64
}

// Load reads configuration from the environment after loading .env when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	userID, err := uuid.Parse(getEnv("HABITPULSE_USER_ID", DefaultUserID))
	if err != nil {
		return nil, fmt.Errorf("HABITPULSE_USER_ID: %w", err)
	}

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
		UserID:    userID,

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		InsightsCacheTTL: getDurationEnv("INSIGHTS_CACHE_TTL", 15*time.Minute),

		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		EventsBreakerFailures: getIntEnv("EVENTS_BREAKER_FAILURES", 5),
		EventsBreakerTimeout:  getDurationEnv("EVENTS_BREAKER_TIMEOUT", 30*time.Second),

		WorkerHealthAddr:    getEnv("WORKER_HEALTH_ADDR", ""),
		GoalsApplyInterval:  getDurationEnv("GOALS_APPLY_INTERVAL", time.Hour),
		WorkerStatsInterval: getDurationEnv("WORKER_STATS_INTERVAL", 5*time.Minute),

		MCPAddr:      getEnv("MCP_ADDR", "127.0.0.1:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),

		AdaptiveWindowDays:        getIntEnv("ADAPTIVE_WINDOW_DAYS", 7),
		AdaptiveIncreaseThreshold: getIntEnv("ADAPTIVE_INCREASE_THRESHOLD", 5),
		AdaptiveDecreaseThreshold: getIntEnv("ADAPTIVE_DECREASE_THRESHOLD", 2),
		AdaptiveStepRatio:         getFloatEnv("ADAPTIVE_STEP_RATIO", 0.1),
	}

	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", ""))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "sqlite"
		if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
			cfg.DatabaseDriver = "postgres"
		}
	}
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LocalMode reports whether habits live in the local SQLite file.
func (c *Config) LocalMode() bool {
	return c.DatabaseDriver == "sqlite"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
