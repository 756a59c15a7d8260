package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("APP_ENV")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SERVER_PORT")

	os.Setenv("RECONCILE_URL", "https://core.doodhly.test/delivery/reconcile")
	defer os.Unsetenv("RECONCILE_URL")

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 24, cfg.Redis.RouteTTLHours)
	assert.Equal(t, 10000.0, cfg.Annealing.InitialTemp)
	assert.Equal(t, 0.9995, cfg.Annealing.CoolingRate)
	assert.Equal(t, 1.0, cfg.Annealing.MinTemp)
	assert.Equal(t, 15, cfg.Reconcile.TimeoutSeconds)
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("REDIS_URL", "redis://cache.internal:6380/2")
	os.Setenv("SA_INITIAL_TEMP", "25000")
	os.Setenv("SA_COOLING_RATE", "0.999")
	os.Setenv("RECONCILE_URL", "https://core.doodhly.test/delivery/reconcile")
	defer func() {
		os.Unsetenv("APP_ENV")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("SA_INITIAL_TEMP")
		os.Unsetenv("SA_COOLING_RATE")
		os.Unsetenv("RECONCILE_URL")
	}()

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "redis://cache.internal:6380/2", cfg.Redis.URL)
	assert.Equal(t, 25000.0, cfg.Annealing.InitialTemp)
	assert.Equal(t, 0.999, cfg.Annealing.CoolingRate)
}

// TestLoad_File verifies that values are loaded from a .env file.
func TestLoad_File(t *testing.T) {
	content := []byte(`
APP_ENV=staging
LOG_LEVEL=warn
SERVER_PORT=7070
RECONCILE_URL=https://staging.doodhly.test/delivery/reconcile
RECONCILE_TIMEOUT_SECONDS=30
`)
	err := os.WriteFile(".env", content, 0644)
	require.NoError(t, err)
	defer os.Remove(".env")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, 30, cfg.Reconcile.TimeoutSeconds)
}

// TestLoad_ValidationFailure verifies that missing required fields return an error.
func TestLoad_ValidationFailure(t *testing.T) {
	os.Unsetenv("RECONCILE_URL")

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "missing required configuration")
}
