package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(NewViper())
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify backend and limiter defaults
		assert.Equal(t, "http://localhost:5000", cfg.Backend.BaseURL)
		assert.Equal(t, 120*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, 30*time.Second, cfg.Limits.Window)
		assert.Equal(t, 2, cfg.Limits.ThumbnailQuota)
		assert.Equal(t, 2, cfg.Limits.StyleQuota)
		assert.False(t, cfg.Limits.SummaryEnabled)
		assert.Equal(t, LimitStoreMemory, cfg.Limits.Store)
		assert.True(t, cfg.Limits.FailOpen)
		assert.True(t, cfg.Limits.PerUser)
		assert.Equal(t, []string{"localhost:5000"}, cfg.DownloadHosts())

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("thumbsmith"), "thumbsmith.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)

		assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
		assert.Equal(t, "local", cfg.Auth.UserID)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("THUMBSMITH_BACKEND_BASE_URL", "https://gen.example.com")
		t.Setenv("THUMBSMITH_BACKEND_TIMEOUT", "45s")
		t.Setenv("THUMBSMITH_LIMITS_SUMMARY_ENABLED", "true")
		t.Setenv("THUMBSMITH_LIMITS_THUMBNAIL_QUOTA", "5")

		cfg, err := Load(NewViper())
		require.NoError(t, err)
		assert.Equal(t, "https://gen.example.com", cfg.Backend.BaseURL)
		assert.Equal(t, 45*time.Second, cfg.Backend.Timeout)
		assert.True(t, cfg.Limits.SummaryEnabled)
		assert.Equal(t, 5, cfg.Limits.ThumbnailQuota)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		v := NewViper()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(`
limits:
  window: 1m
  style_quota: 4
auth:
  user_id: alice
`)))

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, time.Minute, cfg.Limits.Window)
		assert.Equal(t, 4, cfg.Limits.StyleQuota)
		assert.Equal(t, 2, cfg.Limits.ThumbnailQuota)
		assert.Equal(t, "alice", cfg.Auth.UserID)
	})

	t.Run("DownloadHostsAndFailClosed", func(t *testing.T) {
		v := NewViper()
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(`
backend:
  base_url: https://Gen.Example.com
limits:
  fail_open: false
downloads:
  allowed_hosts: [" CDN.example.com ", ""]
`)))

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.False(t, cfg.Limits.FailOpen)
		assert.Equal(t, []string{"gen.example.com", "cdn.example.com"}, cfg.DownloadHosts())
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		cfg, err := Load(NewViper(), map[string]any{
			"limits": map[string]any{"store": "Redis", "redis_url": "redis://localhost:6379/0"},
		})
		require.NoError(t, err)
		assert.Equal(t, LimitStoreRedis, cfg.Limits.Store)
		assert.Equal(t, "thumbsmith:ratelimit", cfg.Limits.RedisPrefix)
	})
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		message   string
	}{
		{name: "base url", overrides: map[string]any{"backend": map[string]any{"base_url": "ftp://x"}}, message: "backend.base_url"},
		{name: "store", overrides: map[string]any{"limits": map[string]any{"store": "etcd"}}, message: "limits.store"},
		{name: "redis url", overrides: map[string]any{"limits": map[string]any{"store": "redis"}}, message: "limits.redis_url"},
		{name: "quota", overrides: map[string]any{"limits": map[string]any{"style_quota": -1}}, message: "quotas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewViper(), tt.overrides)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestGetConfig(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Same(t, cfg, GetConfig())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("THUMBSMITH_AUTH_USER_ID=from-dotenv\n"), 0o600))

	t.Setenv("THUMBSMITH_AUTH_USER_ID", "")
	require.NoError(t, os.Unsetenv("THUMBSMITH_AUTH_USER_ID"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	t.Cleanup(func() { _ = os.Unsetenv("THUMBSMITH_AUTH_USER_ID") })

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.UserID)
}

func TestDefaultPaths(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	assert.Equal(t, filepath.Join(gfconfig.GetAppConfigDir("thumbsmith"), "config.yaml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(gfconfig.GetAppConfigDir("thumbsmith"), "presets"), DefaultPresetsDir())
}
