package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	ClientURL          string

	StripeSecretKey string
	Currency        string

	EsewaSecretKey   string
	EsewaProductCode string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// RewardThreshold is the order total, in minor units, at or above which
	// a reward coupon is issued.
	RewardThreshold int64
	RewardPercent   int32
	RewardValidity  time.Duration

	IdempotencyTTL time.Duration

	ChatRateLimit  int64
	ChatRateWindow time.Duration

	LogLevel  string
	LogFormat string

	TracingEnabled  bool
	TracingEndpoint string
	MetricsBuckets  string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ClientURL:          valueOrDefault(k.String("CLIENT_URL"), "http://localhost:5173"),
		StripeSecretKey:    k.String("STRIPE_SECRET_KEY"),
		Currency:           valueOrDefault(k.String("CURRENCY"), "usd"),
		EsewaSecretKey:     k.String("ESEWA_SECRET_KEY"),
		EsewaProductCode:   valueOrDefault(k.String("ESEWA_PRODUCT_CODE"), "EPAYTEST"),
		GeminiAPIKey:       k.String("GEMINI_API_KEY"),
		GeminiModel:        valueOrDefault(k.String("GEMINI_MODEL"), "gemini-2.5-flash"),
		GeminiBaseURL:      k.String("GEMINI_BASE_URL"),
		RewardThreshold:    parseInt64(k.String("COUPON_REWARD_THRESHOLD"), 20000),
		RewardPercent:      int32(parseInt64(k.String("COUPON_REWARD_PERCENT"), 10)),
		RewardValidity:     parseDuration(k.String("COUPON_REWARD_VALIDITY"), "720h"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ChatRateLimit:      parseInt64(k.String("CHAT_RATE_LIMIT"), 20),
		ChatRateWindow:     parseDuration(k.String("CHAT_RATE_WINDOW"), "1m"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		TracingEnabled:     parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint:    k.String("TRACING_ENDPOINT"),
		MetricsBuckets:     k.String("METRICS_BUCKETS_MS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
