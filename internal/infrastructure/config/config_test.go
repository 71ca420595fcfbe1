package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8400", cfg.Server.Port)
	assert.Equal(t, 200*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.Orchestrate.CaptureTimeout)
	assert.Equal(t, 30*time.Second, cfg.Orchestrate.ReasoningTimeout)
	assert.Equal(t, 2*time.Second, cfg.Relay.ReconnectDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Relay.PollInterval)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GLINT_PORT", "9000")
	t.Setenv("GLINT_ENGINE_TICK", "100ms")
	t.Setenv("GLINT_SEARCH_CACHE_SIZE", "16")
	t.Setenv("GLINT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 16, cfg.Search.CacheSize)
	assert.Equal(t, "debug", cfg.LoggingSettings().Level)
}

func TestSettingsConversion(t *testing.T) {
	cfg := Default()

	eng := cfg.EngineSettings()
	assert.Equal(t, 30*time.Second, eng.CooldownWindow)

	sc := cfg.SearchSettings()
	assert.Equal(t, 64, sc.Cache.MaxEntries)
	assert.Equal(t, 15*time.Minute, sc.Cache.TTL)

	assert.Equal(t, 320.0, cfg.SnapshotSettings().RegionSize)
}
