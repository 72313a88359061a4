package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// PracticeTimezone is the IANA timezone the practice calendar lives in.
	PracticeTimezone string

	// DatabaseURL enables the Postgres appointment store when set;
	// otherwise appointments live in process memory.
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// SearchHorizonDays bounds the forward scan for free appointment days.
	SearchHorizonDays int
	// SuggestionCount is how many alternative slots to offer on a conflict.
	SuggestionCount int
	// SessionTTL is how long per-call state is retained after the last touch.
	SessionTTL time.Duration

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		PracticeTimezone:  getEnv("PRACTICE_TZ", "Europe/Berlin"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		SearchHorizonDays: getEnvAsInt("SEARCH_HORIZON_DAYS", 30),
		SuggestionCount:   getEnvAsInt("SUGGESTION_COUNT", 3),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
