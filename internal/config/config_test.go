package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, "default", cfg.DefaultProjectName)
	require.Equal(t, 1, cfg.QueueDefaults.MaxConcurrency)
	require.False(t, cfg.Reaper.Enabled)
	require.Equal(t, 30*time.Second, cfg.Reaper.Interval.Std())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	body := `
defaultProjectName: acme
queueDefaults:
  maxConcurrency: 4
  retryMaxAttempts: 3
  retryBackoff: 15s
reaper:
  enabled: true
  interval: 1m
  minAge: 500
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "acme", cfg.DefaultProjectName)
	require.Equal(t, 4, cfg.QueueDefaults.MaxConcurrency)
	require.Equal(t, 15*time.Second, cfg.QueueDefaults.RetryBackoff.Std())
	require.True(t, cfg.Reaper.Enabled)
	require.Equal(t, time.Minute, cfg.Reaper.Interval.Std())
	// bare numbers are milliseconds
	require.Equal(t, 500*time.Millisecond, cfg.Reaper.MinAge.Std())
	require.Equal(t, "debug", cfg.Log.Level)
	// untouched fields keep defaults
	require.Equal(t, 256, cfg.Reaper.MaxPerSweep)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.json")
	body := `{"queueDefaults":{"maxConcurrency":2,"retryBackoff":"45s"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.QueueDefaults.MaxConcurrency)
	require.Equal(t, 45*time.Second, cfg.QueueDefaults.RetryBackoff.Std())
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaultProjectName: [broken"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FLOW_DEFAULT_PROJECT_NAME", "env-project")
	t.Setenv("FLOW_QUEUE_DEFAULT_MAX_CONCURRENCY", "8")
	t.Setenv("FLOW_REAPER_ENABLED", "true")
	t.Setenv("FLOW_REAPER_INTERVAL", "2m")
	t.Setenv("FLOW_LOG_FORMAT", "json")

	cfg := Default()
	FromEnv(&cfg)
	require.Equal(t, "env-project", cfg.DefaultProjectName)
	require.Equal(t, 8, cfg.QueueDefaults.MaxConcurrency)
	require.True(t, cfg.Reaper.Enabled)
	require.Equal(t, 2*time.Minute, cfg.Reaper.Interval.Std())
	require.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnvIgnoresInvalid(t *testing.T) {
	t.Setenv("FLOW_QUEUE_DEFAULT_MAX_CONCURRENCY", "0")
	t.Setenv("FLOW_REAPER_INTERVAL", "soon")

	cfg := Default()
	FromEnv(&cfg)
	require.Equal(t, 1, cfg.QueueDefaults.MaxConcurrency)
	require.Equal(t, 30*time.Second, cfg.Reaper.Interval.Std())
}
