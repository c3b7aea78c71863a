package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.EqualValues(t, 65536, cfg.IDs.Granularity)
	require.Equal(t, CounterBackendPebble, cfg.IDs.CounterBackend)
	require.Equal(t, 30*time.Second, cfg.Dispatcher.HeartbeatInterval.Duration)
	require.Zero(t, cfg.Dispatcher.MaxQueued)
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "filings.json")
	data := []byte(`{"dispatcher":{"heartbeatInterval":"5s","maxQueued":100},"ids":{"counterBackend":"sqlite"},"listing":{"defaultPageSize":20,"maxPageSize":200}}`)
	require.NoError(t, os.WriteFile(file, data, 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Dispatcher.HeartbeatInterval.Duration)
	require.Equal(t, 100, cfg.Dispatcher.MaxQueued)
	require.Equal(t, CounterBackendSQLite, cfg.IDs.CounterBackend)
	// Untouched sections keep their defaults.
	require.EqualValues(t, 65536, cfg.IDs.Granularity)
	require.Equal(t, 20, cfg.Listing.DefaultPageSize)
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "filings.yaml")
	data := []byte(`
log:
  level: debug
  format: json
dispatcher:
  heartbeatInterval: 1m
ids:
  granularity: 1024
storage:
  busyTimeout: 250ms
`)
	require.NoError(t, os.WriteFile(file, data, 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, time.Minute, cfg.Dispatcher.HeartbeatInterval.Duration)
	require.EqualValues(t, 1024, cfg.IDs.Granularity)
	require.Equal(t, 250*time.Millisecond, cfg.Storage.BusyTimeout.Duration)
	require.Equal(t, "filings.db", cfg.Storage.SQLiteFile)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	file := filepath.Join(t.TempDir(), "filings.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"dispatcher":{"heartbeatInterval":"soon"}}`), 0o644))
	_, err := Load(file)
	require.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.IDs.CounterBackend = "redis" }},
		{"granularity", func(c *Config) { c.IDs.Granularity = 0 }},
		{"counter name", func(c *Config) { c.IDs.CounterName = "" }},
		{"sqlite file", func(c *Config) { c.Storage.SQLiteFile = "" }},
		{"max queued", func(c *Config) { c.Dispatcher.MaxQueued = -1 }},
		{"page sizes", func(c *Config) { c.Listing.MaxPageSize = 1 }},
		{"retry", func(c *Config) { c.Retry.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FILINGS_IDS_COUNTER_BACKEND", "sqlite")
	t.Setenv("FILINGS_IDS_GRANULARITY", "4096")
	t.Setenv("FILINGS_DISPATCHER_HEARTBEAT_INTERVAL", "2s")
	t.Setenv("FILINGS_DISPATCHER_MAX_QUEUED", "not-a-number")
	t.Setenv("FILINGS_LOG_LEVEL", "warn")

	cfg := Default()
	FromEnv(&cfg)
	require.Equal(t, CounterBackendSQLite, cfg.IDs.CounterBackend)
	require.EqualValues(t, 4096, cfg.IDs.Granularity)
	require.Equal(t, 2*time.Second, cfg.Dispatcher.HeartbeatInterval.Duration)
	require.Zero(t, cfg.Dispatcher.MaxQueued, "malformed values are ignored")
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("FILINGS_STORAGE_SQLITE_FILE=alt.db\nFILINGS_LOG_FORMAT=json\n"), 0o644))
	t.Setenv("FILINGS_LOG_FORMAT", "text") // already set, must win
	t.Cleanup(func() { os.Unsetenv("FILINGS_STORAGE_SQLITE_FILE") })

	require.NoError(t, LoadDotEnv(file))
	cfg := Default()
	FromEnv(&cfg)
	require.Equal(t, "alt.db", cfg.Storage.SQLiteFile)
	require.Equal(t, "text", cfg.Log.Format)

	require.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
