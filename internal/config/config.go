package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Forecasting API configuration.
	ForecastAPIURL     string
	ForecastAPITimeout time.Duration
	ForecastCacheTTL   time.Duration
	ScanThreshold      float64

	// Optional Kafka mirror of the notification feed. Disabled when no brokers are set.
	KafkaBrokers            []string
	KafkaNotificationsTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("invalid .env file: " + err.Error())
	}

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("FORECAST_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := time.ParseDuration(envOrDefault("FORECAST_CACHE_TTL", "60s"))
	if err != nil || cacheTTL < 0 {
		return nil, errors.New("invalid FORECAST_CACHE_TTL")
	}

	threshold, err := strconv.ParseFloat(envOrDefault("SCAN_THRESHOLD", "10"), 64)
	if err != nil || !domain.ValidThreshold(threshold) {
		return nil, errors.New("invalid SCAN_THRESHOLD: must be in (0, 100]")
	}

	cfg := &Config{
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: parseList(envOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ForecastAPIURL:     strings.TrimRight(envOrDefault("FORECAST_API_URL", "http://127.0.0.1:5000"), "/"),
		ForecastAPITimeout: apiTimeout,
		ForecastCacheTTL:   cacheTTL,
		ScanThreshold:      threshold,

		KafkaBrokers:            parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaNotificationsTopic: envOrDefault("KAFKA_NOTIFICATIONS_TOPIC", "ward-notifications"),
	}

	if cfg.ForecastAPIURL == "" {
		return nil, errors.New("FORECAST_API_URL is required")
	}
	if !strings.HasPrefix(cfg.ForecastAPIURL, "http://") && !strings.HasPrefix(cfg.ForecastAPIURL, "https://") {
		return nil, errors.New("FORECAST_API_URL must be an http(s) URL")
	}
	if cfg.KafkaEnabled() && cfg.KafkaNotificationsTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_NOTIFICATIONS_TOPIC is empty")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the notification feed is mirrored to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key + ": must be a positive duration")
	}
	return d, nil
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
