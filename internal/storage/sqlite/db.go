package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"

	"github.com/rzbill/filings/internal/persist"
)

// Options configures the sqlite store wrapper.
type Options struct {
	// Path is the database file. Required; ":memory:" is rejected because
	// every pooled connection would see a different database.
	Path string
	// BusyTimeout is how long sqlite itself waits on a locked database
	// before reporting SQLITE_BUSY.
	BusyTimeout time.Duration
	// Retry bounds the executor's retries of transient failures.
	Retry persist.RetryPolicy
}

// DB wraps *sql.DB with error classification and a retrying executor.
type DB struct {
	sql   *sql.DB
	retry persist.RetryPolicy
}

var _ persist.Executor = (*DB)(nil)

// Open opens (or creates) the database file in WAL mode.
func Open(opts Options) (*DB, error) {
	if opts.Path == "" || opts.Path == ":memory:" {
		return nil, errors.New("sqlite: Options.Path must name a file")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = persist.DefaultRetryPolicy()
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		opts.Path, opts.BusyTimeout.Milliseconds())
	sdb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: open %s", opts.Path)
	}
	if err := sdb.Ping(); err != nil {
		_ = sdb.Close()
		return nil, errors.Wrapf(err, "sqlite: ping %s", opts.Path)
	}
	return &DB{sql: sdb, retry: opts.Retry}, nil
}

// Close closes the pool.
func (db *DB) Close() error {
	if db == nil || db.sql == nil {
		return nil
	}
	return db.sql.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// EnsureSchema runs idempotent DDL statements in order.
func (db *DB) EnsureSchema(ctx context.Context, ddl ...string) error {
	for _, stmt := range ddl {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(classify(err), "sqlite: ensure schema")
		}
	}
	return nil
}

// Exec runs stmt, retrying transient failures with exponential backoff.
// Duplicate-key and other permanent failures are returned on first sight.
func (db *DB) Exec(ctx context.Context, stmt persist.Statement) persist.Outcome {
	var rows int64
	err := db.withRetry(ctx, func() error {
		res, err := db.sql.ExecContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			return classify(err)
		}
		rows, err = res.RowsAffected()
		return err
	})
	return persist.Failed(rows, err)
}

// QueryRow runs a single-row query under the retry policy and scans into dest.
func (db *DB) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	return db.withRetry(ctx, func() error {
		err := db.sql.QueryRowContext(ctx, query, args...).Scan(dest...)
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return classify(err)
	})
}

// Query runs a read query. Callers close the returned rows.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := db.sql.QueryContext(ctx, query, args...)
	return rows, classify(err)
}

func (db *DB) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = db.retry.InitialInterval
	if db.retry.MaxInterval > 0 {
		b.MaxInterval = db.retry.MaxInterval
	}
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(db.retry.MaxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, persist.ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// classify marks sqlite errors with the persist sentinels they correspond to.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch {
	case serr.ExtendedCode == sqlite3.ErrConstraintUnique,
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return errors.Mark(err, persist.ErrDuplicate)
	case serr.Code == sqlite3.ErrBusy, serr.Code == sqlite3.ErrLocked:
		return errors.Mark(err, persist.ErrTransient)
	default:
		return err
	}
}
