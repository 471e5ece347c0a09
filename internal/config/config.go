// Package config loads ambient configuration from the environment,
// following the godotenv + os.Getenv convention used throughout this
// codebase.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob named in the ambient and domain stack.
type Config struct {
	WatchRoot      string
	HTTPPort       string
	DebounceWindow time.Duration
	IgnorePatterns []string

	AIEnabled           bool
	AIProvider          string
	AIAPIKey            string
	AIModel             string
	AITotalTokens       int
	AIBatchSize         int
	AIDelay             time.Duration
	AutoAcceptThreshold float64
	AICacheTTL          time.Duration
}

// Load reads .env (optional — real environment variables take precedence)
// and applies defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		WatchRoot:      getEnvDefault("WATCH_ROOT", "."),
		HTTPPort:       getEnvDefault("HTTP_PORT", "8080"),
		DebounceWindow: getEnvDuration("DEBOUNCE_WINDOW_MS", 100*time.Millisecond),
		IgnorePatterns: getEnvList("IGNORE_PATTERNS", nil),

		AIProvider:          getEnvDefault("AI_PROVIDER", "openai"),
		AIAPIKey:            os.Getenv("AI_API_KEY"),
		AIModel:             getEnvDefault("AI_MODEL", "gpt-4o-mini"),
		AITotalTokens:       getEnvInt("AI_TOTAL_TOKENS", 100000),
		AIBatchSize:         getEnvInt("AI_BATCH_SIZE", 10),
		AIDelay:             getEnvDuration("AI_API_DELAY_MS", time.Second),
		AutoAcceptThreshold: getEnvFloat("AI_AUTO_ACCEPT_THRESHOLD", 0.8),
		AICacheTTL:          getEnvDuration("AI_CACHE_TTL_MS", 30*time.Minute),
	}
	cfg.AIEnabled = cfg.AIAPIKey != ""

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration reads key as milliseconds, the most readable unit for
// debounce/delay/TTL knobs in an env file.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
