package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. With no paths it reads ./.env
// and ignores its absence.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Wrap(err, "config: load .env")
	}
	return nil
}

// FromEnv overlays FILINGS_* environment variables onto cfg. Malformed values
// are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FILINGS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FILINGS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	envDuration("FILINGS_DISPATCHER_HEARTBEAT_INTERVAL", &cfg.Dispatcher.HeartbeatInterval)
	envInt("FILINGS_DISPATCHER_MAX_QUEUED", &cfg.Dispatcher.MaxQueued)
	if v := os.Getenv("FILINGS_IDS_GRANULARITY"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.IDs.Granularity = n
		}
	}
	if v := os.Getenv("FILINGS_IDS_COUNTER_BACKEND"); v != "" {
		cfg.IDs.CounterBackend = v
	}
	if v := os.Getenv("FILINGS_IDS_COUNTER_NAME"); v != "" {
		cfg.IDs.CounterName = v
	}
	if v := os.Getenv("FILINGS_STORAGE_SQLITE_FILE"); v != "" {
		cfg.Storage.SQLiteFile = v
	}
	envDuration("FILINGS_STORAGE_BUSY_TIMEOUT", &cfg.Storage.BusyTimeout)
	envInt("FILINGS_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	envDuration("FILINGS_RETRY_INITIAL_INTERVAL", &cfg.Retry.InitialInterval)
	envDuration("FILINGS_RETRY_MAX_INTERVAL", &cfg.Retry.MaxInterval)
	envInt("FILINGS_LISTING_DEFAULT_PAGE_SIZE", &cfg.Listing.DefaultPageSize)
	envInt("FILINGS_LISTING_MAX_PAGE_SIZE", &cfg.Listing.MaxPageSize)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
