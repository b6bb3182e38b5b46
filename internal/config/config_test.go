package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearRuntimeEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"RUNTIME_ENV", "RUNTIME_STORAGE_BACKEND", "RUNTIME_STORAGE_DSN",
		"LOG_LEVEL", "LOG_FORMAT", "RUNTIME_RATE_LIMIT_ENABLED",
		"RUNTIME_RATE_LIMIT_AUTH_PER_MINUTE", "RUNTIME_RATE_LIMIT_API_PER_MINUTE",
		"RUNTIME_COOKIE_SECURE", "RUNTIME_CORS_ALLOWED_ORIGINS",
		"RUNTIME_SERVICE_CALL_TIMEOUT", "RUNTIME_SHUTDOWN_TIMEOUT", "RUNTIME_LISTEN_ADDR",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearRuntimeEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 10, cfg.RateLimitAuthPerMin)
	assert.Equal(t, 1000, cfg.RateLimitAPIPerMin)
	assert.Equal(t, 30*time.Second, cfg.ServiceCallTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	clearRuntimeEnv(t)
	t.Setenv("RUNTIME_STORAGE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateProductionRejectsWildcardCORS(t *testing.T) {
	clearRuntimeEnv(t)
	t.Setenv("RUNTIME_ENV", "production")
	t.Setenv("RUNTIME_COOKIE_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS")
}

func TestValidateProductionOK(t *testing.T) {
	clearRuntimeEnv(t)
	t.Setenv("RUNTIME_ENV", "production")
	t.Setenv("RUNTIME_COOKIE_SECURE", "true")
	t.Setenv("RUNTIME_CORS_ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("KERNEL_TEST_STR", "hello")
	assert.Equal(t, "hello", GetEnv("KERNEL_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("KERNEL_TEST_MISSING", "fallback"))

	t.Setenv("KERNEL_TEST_BOOL", "yes")
	assert.True(t, GetEnvBool("KERNEL_TEST_BOOL", false))
	assert.False(t, GetEnvBool("KERNEL_TEST_BOOL_MISSING", false))

	t.Setenv("KERNEL_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("KERNEL_TEST_INT", 0))
	assert.Equal(t, 7, GetEnvInt("KERNEL_TEST_INT_MISSING", 7))

	t.Setenv("KERNEL_TEST_DUR", "5s")
	d, ok := ParseEnvDuration("KERNEL_TEST_DUR")
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = ParseEnvDuration("KERNEL_TEST_DUR_MISSING")
	assert.False(t, ok)
}

func TestSplitAndTrimCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitAndTrimCSV("a, b ,c"))
	assert.Nil(t, SplitAndTrimCSV(""))
}
