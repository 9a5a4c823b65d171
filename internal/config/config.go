// Package config loads the billing service configuration from environment
// variables and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
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
	CORSAllowedOrigins []string

	// Tax policy. Mode is "single" or "split"; names and rates are parallel
	// comma-separated lists, rates in basis points. Base decides whether tax
	// applies before or after the coupon discount.
	TaxMode     string
	TaxNames    []string
	TaxRatesBps []int64
	TaxBase     string

	SessionTTL      time.Duration
	CouponCacheTTL  time.Duration
	ShutdownTimeout time.Duration

	PrinterBridgeURL     string
	PrinterTimeout       time.Duration
	PrinterMaxAttempts   int
	PrinterBreakerOpenMs time.Duration

	QueuePrefix            string
	QueueVisibilityTimeout time.Duration
	QueueRetryBase         time.Duration

	CouponRateWindow time.Duration
	CouponRateMax    int
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
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		TaxMode:     valueOrDefault(k.String("TAX_MODE"), "single"),
		TaxNames:    splitAndTrim(valueOrDefault(k.String("TAX_NAMES"), "GST 5%")),
		TaxRatesBps: parseInt64List(valueOrDefault(k.String("TAX_RATES_BPS"), "500")),
		TaxBase:     valueOrDefault(k.String("TAX_BASE"), "pre_discount"),

		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "4h"),
		CouponCacheTTL:  parseDuration(k.String("COUPON_CACHE_TTL"), "5m"),
		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),

		PrinterBridgeURL:     k.String("PRINTER_BRIDGE_URL"),
		PrinterTimeout:       parseDuration(k.String("PRINTER_TIMEOUT"), "5s"),
		PrinterMaxAttempts:   parseInt(k.String("PRINTER_MAX_ATTEMPTS"), 3),
		PrinterBreakerOpenMs: parseDuration(k.String("PRINTER_BREAKER_OPEN"), "30s"),

		QueuePrefix:            valueOrDefault(k.String("QUEUE_PREFIX"), "pos"),
		QueueVisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "30s"),
		QueueRetryBase:         parseDuration(k.String("QUEUE_RETRY_BASE"), "2s"),

		CouponRateWindow: parseDuration(k.String("COUPON_RATE_WINDOW"), "1m"),
		CouponRateMax:    parseInt(k.String("COUPON_RATE_MAX"), 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if len(cfg.TaxNames) != len(cfg.TaxRatesBps) {
		return nil, errors.New("TAX_NAMES and TAX_RATES_BPS must have the same length")
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

func parseInt64List(value string) []int64 {
	parts := splitAndTrim(value)
	result := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		result = append(result, v)
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

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for command
// entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without
// leaking into the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
