package runtime

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzbill/filings/internal/bulk"
	cfgpkg "github.com/rzbill/filings/internal/config"
	"github.com/rzbill/filings/internal/dispatch"
	"github.com/rzbill/filings/internal/filings"
	"github.com/rzbill/filings/internal/idalloc"
	"github.com/rzbill/filings/internal/metrics"
	"github.com/rzbill/filings/internal/persist"
	pebblestore "github.com/rzbill/filings/internal/storage/pebble"
	sqlitestore "github.com/rzbill/filings/internal/storage/sqlite"
	logpkg "github.com/rzbill/filings/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  logpkg.Logger
	// Clock drives the dispatcher heartbeat. Defaults to the real clock.
	Clock clockwork.Clock
}

// Runtime wires storage, config, and facades for a single-node instance.
type Runtime struct {
	kv       *pebblestore.DB // nil unless the pebble counter backend is used
	sql      *sqlitestore.DB
	registry *prometheus.Registry
	alloc    *idalloc.Allocator
	disp     *dispatch.Dispatcher
	repo     *filings.Repository
	svc      *filings.Service
	config   cfgpkg.Config
	logger   logpkg.Logger
}

// Open initializes the underlying storage and returns a Runtime. The
// dispatcher does not drain until Run is called.
func Open(opts Options) (*Runtime, error) {
	if opts.DataDir == "" {
		return nil, errors.New("runtime: DataDir is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "runtime: create data dir")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	cfg := opts.Config
	rt := &Runtime{config: cfg, logger: logger.With(logpkg.Component("runtime")), registry: metrics.NewRegistry()}

	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	sqlPath := cfg.Storage.SQLiteFile
	if !filepath.IsAbs(sqlPath) {
		sqlPath = filepath.Join(opts.DataDir, sqlPath)
	}
	var err error
	rt.sql, err = sqlitestore.Open(sqlitestore.Options{
		Path:        sqlPath,
		BusyTimeout: cfg.Storage.BusyTimeout.Duration,
		Retry: persist.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval.Duration,
			MaxInterval:     cfg.Retry.MaxInterval.Duration,
		},
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	var counter idalloc.CounterStore
	switch cfg.IDs.CounterBackend {
	case cfgpkg.CounterBackendPebble:
		rt.kv, err = pebblestore.Open(pebblestore.Options{
			DataDir:       filepath.Join(opts.DataDir, "ids"),
			Fsync:         opts.Fsync,
			PebbleOptions: &pebble.Options{Logger: logger.WithComponent("pebble")},
			Metrics:       metrics.NewStorage(rt.registry),
		})
		if err != nil {
			return nil, err
		}
		counter = pebblestore.NewCounter(rt.kv, cfg.IDs.CounterName)
	case cfgpkg.CounterBackendSQLite:
		c, err := sqlitestore.NewCounter(ctx, rt.sql, cfg.IDs.CounterName)
		if err != nil {
			return nil, err
		}
		counter = c
	}

	rt.repo, err = filings.NewRepository(ctx, rt.sql)
	if err != nil {
		return nil, err
	}
	rt.alloc = idalloc.New(counter, idalloc.Options{
		Granularity: cfg.IDs.Granularity,
		Logger:      logger,
		Metrics:     idalloc.NewMetrics(rt.registry),
	})
	rt.disp = dispatch.New(dispatch.Options{
		HeartbeatInterval: cfg.Dispatcher.HeartbeatInterval.Duration,
		MaxQueued:         cfg.Dispatcher.MaxQueued,
		Clock:             opts.Clock,
		Logger:            logger,
		Metrics:           dispatch.NewMetrics(rt.registry),
	})
	rt.svc = filings.NewService(rt.repo, rt.alloc, rt.disp, filings.Options{
		DefaultPageSize: cfg.Listing.DefaultPageSize,
		MaxPageSize:     cfg.Listing.MaxPageSize,
		Logger:          logger,
		BulkMetrics:     bulk.NewMetrics(rt.registry),
	})

	rt.logger.Info("runtime opened",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("counter_backend", cfg.IDs.CounterBackend),
	)
	ok = true
	return rt, nil
}

// Run drains the dispatcher until ctx ends.
func (r *Runtime) Run(ctx context.Context) error {
	return r.disp.Run(ctx)
}

// Close closes underlying resources. Call it after Run has returned.
func (r *Runtime) Close() error {
	var errs error
	if r.sql != nil {
		errs = errors.CombineErrors(errs, r.sql.Close())
	}
	if r.kv != nil {
		errs = errors.CombineErrors(errs, r.kv.Close())
	}
	return errs
}

// CheckHealth verifies every open store answers.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.sql == nil {
		return errors.New("runtime: filings db not open")
	}
	if err := r.sql.Ping(ctx); err != nil {
		return errors.Wrap(err, "runtime: filings db")
	}
	if r.kv != nil {
		if err := r.kv.Ping(); err != nil {
			return errors.Wrap(err, "runtime: id store")
		}
	}
	return nil
}

// Service returns the filings facade shared by the transports.
func (r *Runtime) Service() *filings.Service { return r.svc }

// Dispatcher exposes the command dispatcher.
func (r *Runtime) Dispatcher() *dispatch.Dispatcher { return r.disp }

// Allocator exposes the id allocator.
func (r *Runtime) Allocator() *idalloc.Allocator { return r.alloc }

// Registry returns the runtime's prometheus registry.
func (r *Runtime) Registry() *prometheus.Registry { return r.registry }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
