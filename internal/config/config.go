package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mirinae-games/npc-engine/pkg/npc"
	"github.com/mirinae-games/npc-engine/pkg/quest"
)

// Config carries every recognized option for the engine and its
// commands. Values come from the environment, with an optional .env
// file loaded best-effort first.
type Config struct {
	Environment string
	LogLevel    slog.Level

	RedisURL string
	DataDir  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	ModelName     string

	DailyTokenBudget   int
	DailyAffinityCap   int
	MaxRecentTurns     int
	MaxSummaryChars    int
	QuestSelectionMode quest.SelectionMode
	Language           string
}

func Load() *Config {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	mode, err := quest.ParseSelectionMode(getEnv("QUEST_SELECTION_MODE", "pool"))
	if err != nil {
		slog.Warn("invalid quest selection mode, using pool", "error", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		RedisURL: getEnv("REDIS_URL", "localhost:6379"),
		DataDir:  getEnv("DATA_DIR", "./data"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ModelName:     getEnv("MODEL_NAME", "gpt-4o-mini"),

		DailyTokenBudget:   getEnvInt("DAILY_TOKEN_BUDGET", 100000),
		DailyAffinityCap:   getEnvInt("DAILY_AFFINITY_CAP", 5),
		MaxRecentTurns:     getEnvInt("MAX_RECENT_TURNS", npc.DefaultMaxRecentTurns),
		MaxSummaryChars:    getEnvInt("MAX_SUMMARY_CHARS", npc.DefaultMaxSummaryChars),
		QuestSelectionMode: mode,
		Language:           getEnv("LANGUAGE", "en"),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default",
			"key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return n
}
