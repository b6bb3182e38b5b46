// Package config loads the kernel's runtime configuration from environment
// variables, following the RUNTIME_* convention the gateway and auth
// boundary rely on.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the kernel is running under.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// ParseEnvironment parses a string (case-insensitive) into a known Environment.
func ParseEnvironment(raw string) (env Environment, ok bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch Environment(raw) {
	case Development, Testing, Production:
		return Environment(raw), true
	default:
		return Development, false
	}
}

// RuntimeConfig holds every environment-derived setting the kernel reads at
// startup, per the RUNTIME_* convention.
type RuntimeConfig struct {
	Env Environment

	// Storage backend selection (internal/storage.NewFromEnv).
	StorageBackend string // "memory" | "postgres"
	StorageDSN     string

	// Logging.
	LogLevel  string
	LogFormat string

	// Rate limiting (internal/auth).
	RateLimitEnabled     bool
	RateLimitAuthPerMin  int
	RateLimitAPIPerMin   int

	// Cookies and CORS (internal/gateway).
	CookieSecure      bool
	CORSAllowedOrigins []string

	// ServiceRegistry default call timeout.
	ServiceCallTimeout time.Duration

	// CoreRuntime.Stop bound.
	ShutdownTimeout time.Duration

	// HTTP listen address.
	ListenAddr string
}

// Load reads RuntimeConfig from the environment, optionally loading a
// config/<env>.env file first (missing files are not an error).
func Load() (*RuntimeConfig, error) {
	envStr := os.Getenv("RUNTIME_ENV")
	if envStr == "" {
		envStr = string(Development)
	}
	env, ok := ParseEnvironment(envStr)
	if !ok {
		return nil, fmt.Errorf("invalid RUNTIME_ENV: %s (must be development, testing, or production)", envStr)
	}

	envFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("warning: could not load %s: %v\n", envFile, err)
	}

	cfg := &RuntimeConfig{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load runtime configuration: %w", err)
	}
	return cfg, nil
}

func (c *RuntimeConfig) loadFromEnv() error {
	c.StorageBackend = GetEnv("RUNTIME_STORAGE_BACKEND", "memory")
	c.StorageDSN = GetEnv("RUNTIME_STORAGE_DSN", "")
	if c.StorageBackend == "postgres" && c.StorageDSN == "" {
		return fmt.Errorf("RUNTIME_STORAGE_DSN is required when RUNTIME_STORAGE_BACKEND=postgres")
	}

	c.LogLevel = GetEnv("LOG_LEVEL", "info")
	c.LogFormat = GetEnv("LOG_FORMAT", "json")

	c.RateLimitEnabled = GetEnvBool("RUNTIME_RATE_LIMIT_ENABLED", true)
	c.RateLimitAuthPerMin = GetEnvInt("RUNTIME_RATE_LIMIT_AUTH_PER_MINUTE", 10)
	c.RateLimitAPIPerMin = GetEnvInt("RUNTIME_RATE_LIMIT_API_PER_MINUTE", 1000)

	c.CookieSecure = GetEnvBool("RUNTIME_COOKIE_SECURE", c.Env == Production)
	c.CORSAllowedOrigins = SplitAndTrimCSV(GetEnv("RUNTIME_CORS_ALLOWED_ORIGINS", "*"))

	timeout, ok := ParseEnvDuration("RUNTIME_SERVICE_CALL_TIMEOUT")
	if !ok {
		timeout = 30 * time.Second
	}
	c.ServiceCallTimeout = timeout

	shutdown, ok := ParseEnvDuration("RUNTIME_SHUTDOWN_TIMEOUT")
	if !ok {
		shutdown = 15 * time.Second
	}
	c.ShutdownTimeout = shutdown

	c.ListenAddr = GetEnv("RUNTIME_LISTEN_ADDR", ":8080")

	return nil
}

// IsDevelopment reports whether the configured environment is development.
func (c *RuntimeConfig) IsDevelopment() bool { return c.Env == Development }

// IsTesting reports whether the configured environment is testing.
func (c *RuntimeConfig) IsTesting() bool { return c.Env == Testing }

// IsProduction reports whether the configured environment is production.
func (c *RuntimeConfig) IsProduction() bool { return c.Env == Production }

// Validate rejects unsafe combinations, refusing to start rather than run
// with a dangerous configuration in production.
func (c *RuntimeConfig) Validate() error {
	if c.IsProduction() {
		if !c.RateLimitEnabled {
			return fmt.Errorf("RUNTIME_RATE_LIMIT_ENABLED must be true in production")
		}
		if !c.CookieSecure {
			return fmt.Errorf("RUNTIME_COOKIE_SECURE must be true in production")
		}
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("RUNTIME_CORS_ALLOWED_ORIGINS must not be wildcard in production")
			}
		}
	}
	if c.StorageBackend != "memory" && c.StorageBackend != "postgres" {
		return fmt.Errorf("unknown RUNTIME_STORAGE_BACKEND: %s", c.StorageBackend)
	}
	return nil
}

// Environment-variable helpers, in the style the kernel uses everywhere else
// a component reads its own small slice of environment configuration.

// GetEnv retrieves an environment variable with a fallback default.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool retrieves a boolean environment variable with a fallback default.
// Accepts "true", "1", "yes", "y" (case-insensitive) as true.
func GetEnvBool(key string, defaultValue bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	lower := strings.ToLower(val)
	return lower == "true" || lower == "1" || lower == "yes" || lower == "y"
}

// GetEnvInt retrieves an integer environment variable with a fallback default.
func GetEnvInt(key string, defaultValue int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// ParseEnvDuration parses a duration-valued environment variable.
func ParseEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// SplitAndTrimCSV splits a comma-separated string, trimming and dropping
// empty segments.
func SplitAndTrimCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
