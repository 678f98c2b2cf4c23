package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-gateway/pkg/ratelimit"
)

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	return v
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := load(newViper(t.TempDir()))
		require.NoError(t, err)

		assert.Equal(t, 3001, cfg.Server.Port)
		assert.False(t, cfg.Server.Development())
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, ratelimit.FixedWindow, cfg.RateLimit.Algorithm)
		assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.RateLimit.Allowlist)
		assert.Equal(t, StoreMemory, cfg.Cache.Store)
		assert.Equal(t, time.Minute, cfg.Cache.SweepInterval)
		assert.Equal(t, 10*time.Second, cfg.Forwarder.Timeout)
		assert.Empty(t, cfg.Downstreams.BackendV2)

		require.Len(t, cfg.RateLimit.Tiers, 3)
		assert.Equal(t, ratelimit.DefaultTiers(), cfg.RateLimit.Tiers)
	})

	t.Run("Valid Config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configContent := `
server:
  port: 8080
  environment: development
ratelimit:
  algorithm: sliding_window
  tiers:
    ai:
      limit: 5
      window: 30s
cache:
  sweep_interval: 5m
downstreams:
  backend_v2: "http://backend:4000"
`
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(configContent), 0644))

		cfg, err := load(newViper(tmpDir))
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.True(t, cfg.Server.Development())
		assert.Equal(t, ratelimit.SlidingWindow, cfg.RateLimit.Algorithm)
		assert.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)
		assert.Equal(t, "http://backend:4000", cfg.Downstreams.Targets()[TargetBackendV2])

		ai := cfg.RateLimit.Tiers[ratelimit.TierAI]
		assert.Equal(t, ratelimit.Tier{
			Name:    ratelimit.TierAI,
			Limit:   5,
			Window:  30 * time.Second,
			Message: "Too many AI requests, please try again later.",
		}, ai)
		assert.Equal(t, 100, cfg.RateLimit.Tiers[ratelimit.TierGeneral].Limit)
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("BACKEND_V2_URL", "http://env-backend")
		t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
		t.Setenv("RATELIMIT_TIERS_SEARCH_LIMIT", "7")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := load(newViper(t.TempDir()))
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "http://env-backend", cfg.Downstreams.BackendV2)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, 7, cfg.RateLimit.Tiers[ratelimit.TierSearch].Limit)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Invalid store", func(t *testing.T) {
		t.Setenv("CACHE_STORE", "memcached")
		_, err := load(newViper(t.TempDir()))
		assert.Error(t, err)
	})
}

func TestProviderConfig(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		providers, err := LoadProviderConfig(filepath.Join(t.TempDir(), "providers.yaml"))
		require.NoError(t, err)
		assert.Empty(t, providers.Providers)
	})

	t.Run("Fills unset base URLs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "providers.yaml")
		content := `
providers:
  backend_v2:
    base_url: "http://yaml-backend"
  weather:
    base_url: "http://yaml-weather"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		providers, err := LoadProviderConfig(path)
		require.NoError(t, err)

		cfg := &Config{}
		cfg.Weather.BaseURL = "http://configured-weather"
		providers.Apply(cfg)

		assert.Equal(t, "http://yaml-backend", cfg.Downstreams.BackendV2)
		assert.Equal(t, "http://configured-weather", cfg.Weather.BaseURL)
		assert.Empty(t, cfg.Maps.BaseURL)
	})
}

func TestShippedConfig(t *testing.T) {
	dir := filepath.Join("..", "..", "config")

	cfg, err := load(newViper(dir))
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.False(t, cfg.Server.Development())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ratelimit.DefaultTiers()[ratelimit.TierAI].Limit, cfg.RateLimit.Tiers[ratelimit.TierAI].Limit)

	providers, err := LoadProviderConfig(filepath.Join(dir, "providers.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.open-meteo.com", providers.BaseURL("weather"))
}
