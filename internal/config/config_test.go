package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Europe/Berlin", cfg.PracticeTimezone)
	assert.Equal(t, 30, cfg.SearchHorizonDays)
	assert.Equal(t, 3, cfg.SuggestionCount)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SEARCH_HORIZON_DAYS", "14")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_TTL", "1h")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 14, cfg.SearchHorizonDays)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SEARCH_HORIZON_DAYS", "a month")
	t.Setenv("SESSION_TTL", "tomorrow")

	cfg := Load()

	assert.Equal(t, 30, cfg.SearchHorizonDays)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}
