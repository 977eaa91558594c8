package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/praxis/internal/app"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := app.LoadConfig()
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8000/api", cfg.APIURL)
		require.Equal(t, app.StoreSQLite, cfg.Store)
		require.Equal(t, 15*time.Second, cfg.RequestTimeout)
		require.Equal(t, 5*time.Minute, cfg.RefreshInterval)
		require.Equal(t, 5*time.Minute, cfg.RefreshThreshold)
		require.Equal(t, "praxis:", cfg.RedisPrefix)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PRAXIS_API_URL", "https://api.example.com/api/")
		t.Setenv("PRAXIS_STORE", "Redis")
		t.Setenv("PRAXIS_REFRESH_INTERVAL", "30s")
		t.Setenv("PRAXIS_RATE_LIMIT_RPS", "2.5")
		t.Setenv("PRAXIS_RATE_LIMIT_BURST", "0")

		cfg, err := app.LoadConfig()
		require.NoError(t, err)
		require.Equal(t, "https://api.example.com/api", cfg.APIURL)
		require.Equal(t, app.StoreRedis, cfg.Store)
		require.Equal(t, 30*time.Second, cfg.RefreshInterval)
		require.InDelta(t, 2.5, cfg.RateLimitRPS, 0.001)
		require.Equal(t, 1, cfg.RateLimitBurst)
	})

	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("PRAXIS_REQUEST_TIMEOUT", "soon")
		_, err := app.LoadConfig()
		require.Error(t, err)
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("PRAXIS_STORE", "etcd")
		_, err := app.LoadConfig()
		require.ErrorContains(t, err, "unknown store")
	})
}

func TestSanitize(t *testing.T) {
	cfg := app.Config{APIURL: " http://api.test/ ", RequestTimeout: -time.Second, RateLimitRPS: -1}
	require.NoError(t, cfg.Sanitize())
	require.Equal(t, "http://api.test", cfg.APIURL)
	require.Equal(t, app.StoreSQLite, cfg.Store)
	require.Equal(t, 15*time.Second, cfg.RequestTimeout)
	require.Zero(t, cfg.RateLimitRPS)

	require.Error(t, (&app.Config{}).Sanitize(), "API URL is required")
}
