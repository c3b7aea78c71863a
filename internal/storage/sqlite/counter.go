package sqlitestore

import (
	"context"

	"github.com/cockroachdb/errors"
)

const counterDDL = `CREATE TABLE IF NOT EXISTS counters (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL
)`

const reserveSQL = `INSERT INTO counters (name, value) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET value = value + excluded.value
RETURNING value`

// Counter is a high-water mark in the counters table. The upsert runs as one
// statement under sqlite's database write lock, so it is atomic across
// processes sharing the file.
type Counter struct {
	db   *DB
	name string
}

// NewCounter creates the counters table if needed and returns the named counter.
func NewCounter(ctx context.Context, db *DB, name string) (*Counter, error) {
	if err := db.EnsureSchema(ctx, counterDDL); err != nil {
		return nil, err
	}
	return &Counter{db: db, name: name}, nil
}

// ReserveRange adds amount to the mark and returns the new total. A statement
// that failed with SQLITE_BUSY did not apply, so retrying it is safe.
func (c *Counter) ReserveRange(ctx context.Context, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, errors.New("sqlite: reserve amount must be positive")
	}
	if amount > 1<<62 {
		return 0, errors.Newf("sqlite: reserve amount %d out of range", amount)
	}
	var end int64
	if err := c.db.QueryRow(ctx, reserveSQL, []any{c.name, int64(amount)}, &end); err != nil {
		return 0, errors.Wrapf(err, "sqlite: reserve %d on %s", amount, c.name)
	}
	return uint64(end), nil
}
