package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and workers.
type Config struct {
	Port string

	AuthToken string

	DatabaseURL string

	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiTimeoutMS  int
	GeminiMaxRetries int
	GeminiModels     []string

	QueueBackend     string
	QStashURL        string
	QStashToken      string
	QStashSigningKey string
	WebhookBaseURL   string
	QStashMaxRetries int
	QStashTimeoutMS  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisDLQ      string
	RedisGroup    string
	RedisConsumer string

	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerEnabled        bool
	JanitorEnabled       bool
	JobRetentionDays     int
	JanitorIntervalHours int
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiTimeoutMS:  getEnvInt("GEMINI_TIMEOUT_MS", 60000),
		GeminiMaxRetries: getEnvInt("GEMINI_MAX_RETRIES", 3),
		GeminiModels:     getEnvList("GEMINI_MODELS", "gemini-2.5-flash,gemini-2.0-flash"),

		QueueBackend:     getEnv("QUEUE_BACKEND", ""),
		QStashURL:        getEnv("QSTASH_URL", "https://qstash.upstash.io"),
		QStashToken:      getEnv("QSTASH_TOKEN", ""),
		QStashSigningKey: getEnv("QSTASH_CURRENT_SIGNING_KEY", ""),
		WebhookBaseURL:   getEnv("WEBHOOK_BASE_URL", ""),
		QStashMaxRetries: getEnvInt("QSTASH_MAX_RETRIES", 3),
		QStashTimeoutMS:  getEnvInt("QSTASH_TIMEOUT_MS", 10000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "qa_jobs"),
		RedisDLQ:      getEnv("REDIS_DLQ_STREAM", "qa_jobs_dlq"),
		RedisGroup:    getEnv("REDIS_GROUP", "qa_workers"),
		RedisConsumer: getEnv("REDIS_CONSUMER", "api-1"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		WorkerEnabled:        getEnvBool("WORKER_ENABLED", true),
		JanitorEnabled:       getEnvBool("JANITOR_ENABLED", true),
		JobRetentionDays:     getEnvInt("JOB_RETENTION_DAYS", 30),
		JanitorIntervalHours: getEnvInt("JANITOR_INTERVAL_HOURS", 1),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
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

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key, fallback string) []string {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
