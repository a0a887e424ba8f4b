package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ganot/worklog/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "http", cfg.Server.Mode)
	require.Equal(t, "worklog.db", cfg.DB.Path)
	require.Equal(t, "session_archive", cfg.Archive.Collection)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	require.Equal(t, 12, cfg.AutoStop.Hour)
	require.Equal(t, 55, cfg.AutoStop.Minute)
	require.Equal(t, int64(10800), cfg.AutoStop.FallbackSeconds)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WORKLOG_SERVER_HOST", "127.0.0.1")
	t.Setenv("WORKLOG_SERVER_PORT", "9090")
	t.Setenv("WORKLOG_SERVER_MODE", "stdio")
	t.Setenv("WORKLOG_DB_PATH", "/tmp/other.db")
	t.Setenv("WORKLOG_TIMESHEET_URL", "https://timesheet.example.com/api")
	t.Setenv("WORKLOG_TIMESHEET_GUID", "secret-guid")
	t.Setenv("WORKLOG_AUTO_STOP_SECONDS", "3600")
	t.Setenv("WORKLOG_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "stdio", cfg.Server.Mode)
	require.Equal(t, "/tmp/other.db", cfg.DB.Path)
	require.Equal(t, "https://timesheet.example.com/api", cfg.Timesheet.URL)
	require.Equal(t, "secret-guid", cfg.Timesheet.GUID)
	require.Equal(t, int64(3600), cfg.AutoStop.FallbackSeconds)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("WORKLOG_SERVER_PORT", "not-a-port")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "WORKLOG_SERVER_PORT")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 7070
auto_stop:
  hour: 18
  minute: 30
timesheet:
  url: https://timesheet.example.com/api
  guid: file-guid
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("WORKLOG_CONFIG_PATH", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 18, cfg.AutoStop.Hour)
	require.Equal(t, 30, cfg.AutoStop.Minute)
	require.Equal(t, "file-guid", cfg.Timesheet.GUID)
	// Untouched sections keep their defaults.
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	t.Setenv("WORKLOG_CONFIG_PATH", path)
	t.Setenv("WORKLOG_SERVER_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestMissingFileErrors(t *testing.T) {
	t.Setenv("WORKLOG_CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := config.Load()
	require.Error(t, err)
}
