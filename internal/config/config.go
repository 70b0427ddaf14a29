package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	// Review pipeline
	OpenAIKey   string
	ReviewModel string
	// Coordination windows
	OpenDocTTL        time.Duration
	HeartbeatInterval time.Duration
	LockTTL           time.Duration
	ReviewTick        time.Duration
	ErrorCooldown     time.Duration
	MinReviewChars    int
	// Editing windows
	HistoryLimit     int
	HistoryDebounce  time.Duration
	AutosaveDebounce time.Duration
}

func Load() Config {
	return Config{
		DatabaseURL: getenv("DATABASE_URL", ""),
		RedisURL:    getenv("REDIS_URL", "redis://localhost:6379/0"),
		OpenAIKey:   getenv("OPENAI_API_KEY", ""),
		ReviewModel: getenv("INKWELL_REVIEW_MODEL", "gpt-4o-mini"),

		OpenDocTTL:        getenvDuration("INKWELL_OPEN_DOC_TTL", 15*time.Second),
		HeartbeatInterval: getenvDuration("INKWELL_HEARTBEAT_INTERVAL", 5*time.Second),
		LockTTL:           getenvDuration("INKWELL_REVIEW_LOCK_TTL", 10*time.Minute),
		ReviewTick:        getenvDuration("INKWELL_REVIEW_TICK", 30*time.Second),
		ErrorCooldown:     getenvDuration("INKWELL_REVIEW_ERROR_COOLDOWN", 2*time.Minute),
		MinReviewChars:    getenvInt("INKWELL_MIN_REVIEW_CHARS", 120),

		HistoryLimit:     getenvInt("INKWELL_HISTORY_LIMIT", 100),
		HistoryDebounce:  getenvDuration("INKWELL_HISTORY_DEBOUNCE", 300*time.Millisecond),
		AutosaveDebounce: getenvDuration("INKWELL_AUTOSAVE_DEBOUNCE", 800*time.Millisecond),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
