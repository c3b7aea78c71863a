package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	logpkg "github.com/rzbill/filings/pkg/log"
)

// Counter store backends.
const (
	CounterBackendPebble = "pebble"
	CounterBackendSQLite = "sqlite"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Log        logpkg.Config    `json:"log" yaml:"log"`
	Dispatcher DispatcherConfig `json:"dispatcher" yaml:"dispatcher"`
	IDs        IDsConfig        `json:"ids" yaml:"ids"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Retry      RetryConfig      `json:"retry" yaml:"retry"`
	Listing    ListingConfig    `json:"listing" yaml:"listing"`
}

// DispatcherConfig tunes the command dispatcher.
type DispatcherConfig struct {
	HeartbeatInterval Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	// MaxQueued bounds the queue; 0 keeps it unbounded.
	MaxQueued int `json:"maxQueued" yaml:"maxQueued"`
}

// IDsConfig selects where the id high-water mark lives.
type IDsConfig struct {
	Granularity    uint64 `json:"granularity" yaml:"granularity"`
	CounterBackend string `json:"counterBackend" yaml:"counterBackend"`
	CounterName    string `json:"counterName" yaml:"counterName"`
}

// StorageConfig locates the relational store inside the data dir.
type StorageConfig struct {
	SQLiteFile  string   `json:"sqliteFile" yaml:"sqliteFile"`
	BusyTimeout Duration `json:"busyTimeout" yaml:"busyTimeout"`
}

// RetryConfig bounds retries of transient statement failures.
type RetryConfig struct {
	MaxAttempts     int      `json:"maxAttempts" yaml:"maxAttempts"`
	InitialInterval Duration `json:"initialInterval" yaml:"initialInterval"`
	MaxInterval     Duration `json:"maxInterval" yaml:"maxInterval"`
}

// ListingConfig bounds list page sizes.
type ListingConfig struct {
	DefaultPageSize int `json:"defaultPageSize" yaml:"defaultPageSize"`
	MaxPageSize     int `json:"maxPageSize" yaml:"maxPageSize"`
}

// Duration is a time.Duration written as "30s" in config files.
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration { return Duration{d} }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", b)
	}
	d.Duration = v
	return nil
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Log: logpkg.Config{Level: "info", Format: "text"},
		Dispatcher: DispatcherConfig{
			HeartbeatInterval: D(30 * time.Second),
		},
		IDs: IDsConfig{
			Granularity:    65536,
			CounterBackend: CounterBackendPebble,
			CounterName:    "filings",
		},
		Storage: StorageConfig{
			SQLiteFile:  "filings.db",
			BusyTimeout: D(5 * time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts:     5,
			InitialInterval: D(10 * time.Millisecond),
			MaxInterval:     D(500 * time.Millisecond),
		},
		Listing: ListingConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) over the
// defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	return cfg, nil
}

// Validate rejects settings the runtime cannot honour.
func (c Config) Validate() error {
	switch c.IDs.CounterBackend {
	case CounterBackendPebble, CounterBackendSQLite:
	default:
		return errors.Newf("config: unknown counter backend %q", c.IDs.CounterBackend)
	}
	if c.IDs.Granularity == 0 {
		return errors.New("config: ids.granularity must be positive")
	}
	if c.IDs.CounterName == "" {
		return errors.New("config: ids.counterName is required")
	}
	if c.Storage.SQLiteFile == "" {
		return errors.New("config: storage.sqliteFile is required")
	}
	if c.Dispatcher.MaxQueued < 0 {
		return errors.New("config: dispatcher.maxQueued must not be negative")
	}
	if c.Listing.DefaultPageSize <= 0 || c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		return errors.Newf("config: listing page sizes %d/%d are inconsistent",
			c.Listing.DefaultPageSize, c.Listing.MaxPageSize)
	}
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("config: retry.maxAttempts must be positive")
	}
	return nil
}
