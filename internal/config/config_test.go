package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hexmem/hexmem/internal/config"
)

func TestLoad_DefaultsWhenNoEnvSet(t *testing.T) {
	clearHexmemEnv(t)

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres", cfg.Storage.Engine)
	assert.Equal(t, "stub", cfg.Embed.Provider)
	assert.Equal(t, "stub", cfg.Extract.Provider)
	assert.Equal(t, "", cfg.Security.DevKey)
	assert.Equal(t, time.Hour, cfg.Decay.SweepInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.Decay.AnalyticsRetention)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearHexmemEnv(t)
	t.Setenv("HEXMEM_PORT", "9090")
	t.Setenv("HEXMEM_STORAGE_ENGINE", "sqlite")
	t.Setenv("HEXMEM_DEV_KEY", "local-dev-token")
	t.Setenv("HEXMEM_DECAY_SWEEP_INTERVAL", "15m")

	cfg := config.Load()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, "local-dev-token", cfg.Security.DevKey)
	assert.Equal(t, 15*time.Minute, cfg.Decay.SweepInterval)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	clearHexmemEnv(t)
	t.Setenv("HEXMEM_PORT", "not-a-number")

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Server.Port)
}

func clearHexmemEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HEXMEM_PORT", "HEXMEM_HOST", "HEXMEM_STORAGE_ENGINE", "HEXMEM_DSN",
		"HEXMEM_MIGRATIONS_DIR", "HEXMEM_DB_MAX_OPEN_CONNS", "HEXMEM_DB_IDLE_TIMEOUT",
		"HEXMEM_DB_CONNECT_TIMEOUT", "HEXMEM_EMBED_PROVIDER", "HEXMEM_OLLAMA_URL",
		"HEXMEM_EMBED_MODEL", "HEXMEM_OPENAI_API_KEY", "HEXMEM_EMBED_DIMENSIONS",
		"HEXMEM_EXTRACT_PROVIDER", "HEXMEM_EXTRACT_MODEL", "HEXMEM_DEV_KEY",
		"HEXMEM_DECAY_SWEEP_INTERVAL", "HEXMEM_ANALYTICS_PRUNE_INTERVAL",
		"HEXMEM_ANALYTICS_RETENTION", "HEXMEM_COOLING_TO_ARCHIVE_AGE",
	} {
		t.Setenv(key, "")
	}
}
