package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all gateway configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// Upstream exam service (attempt lifecycle, modules, scoring).
	ExamAPIBaseURL string
	ExamAPITimeout time.Duration
	ExamAPIRetries int

	JWTSecret string

	// BreakSeconds is the fixed rest period between sections.
	BreakSeconds int
	// SessionIdleTTL is how long a paused in-memory session survives before
	// the registry evicts it. The attempt itself stays resumable upstream.
	SessionIdleTTL time.Duration

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		ExamAPIBaseURL: getEnv("EXAM_API_BASE_URL", "http://localhost:9090/api/v1"),
		ExamAPITimeout: time.Duration(getEnvInt("EXAM_API_TIMEOUT_SECONDS", 10)) * time.Second,
		ExamAPIRetries: getEnvInt("EXAM_API_RETRIES", 2),
		JWTSecret:      getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		BreakSeconds:   getEnvInt("BREAK_SECONDS", 600),
		SessionIdleTTL: time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 120)) * time.Minute,
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
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

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
