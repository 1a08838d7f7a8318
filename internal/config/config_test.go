package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  session_timeout_minutes: 15
api:
  base_url: https://api.example.com
  widget_key: wk_123
  cache_ttl_seconds: 120
redis:
  address: localhost:6379
monitoring:
  prometheus_enabled: true
  prometheus_port: 9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ServerPort())
	assert.Equal(t, 15*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, "wk_123", cfg.API.WidgetKey)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.True(t, cfg.Monitoring.PrometheusEnabled)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_WIDGET_KEY", "wk_from_env")
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
  widget_key: ${TEST_WIDGET_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wk_from_env", cfg.API.WidgetKey)
}

func TestDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
  widget_key: wk
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.Equal(t, 20, cfg.RatePerSecond())
	assert.Equal(t, 40, cfg.RateBurst())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
