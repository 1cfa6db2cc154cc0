package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirinae-games/npc-engine/pkg/quest"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)
	assert.Equal(t, 100000, cfg.DailyTokenBudget)
	assert.Equal(t, 5, cfg.DailyAffinityCap)
	assert.Equal(t, quest.ModePool, cfg.QuestSelectionMode)
	assert.Equal(t, "en", cfg.Language)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis.internal:6380")
	t.Setenv("DAILY_TOKEN_BUDGET", "5000")
	t.Setenv("QUEST_SELECTION_MODE", "sequence")
	t.Setenv("LANGUAGE", "ko")

	cfg := Load()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "redis.internal:6380", cfg.RedisURL)
	assert.Equal(t, 5000, cfg.DailyTokenBudget)
	assert.Equal(t, quest.ModeSequence, cfg.QuestSelectionMode)
	assert.Equal(t, "ko", cfg.Language)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DAILY_TOKEN_BUDGET", "not-a-number")
	t.Setenv("QUEST_SELECTION_MODE", "chaotic")
	t.Setenv("LOG_LEVEL", "verbose")

	cfg := Load()

	assert.Equal(t, 100000, cfg.DailyTokenBudget)
	assert.Equal(t, quest.ModePool, cfg.QuestSelectionMode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
}
