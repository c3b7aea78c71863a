package pebblestore

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

var counterPrefix = []byte("ctr/")

func counterKey(name string) []byte {
	k := make([]byte, 0, len(counterPrefix)+len(name))
	k = append(k, counterPrefix...)
	return append(k, name...)
}

// Counter is a persisted, monotonically increasing high-water mark. Pebble
// holds a directory lock, so a Counter is authoritative for a single process.
type Counter struct {
	db  *DB
	key []byte
}

// NewCounter returns the counter stored under name.
func NewCounter(db *DB, name string) *Counter {
	return &Counter{db: db, key: counterKey(name)}
}

// Current returns the stored mark, 0 if never reserved.
func (c *Counter) Current() (uint64, error) {
	v, err := c.db.Get(c.key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, errors.Newf("pebble: counter %s holds %d bytes", c.key, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

// ReserveRange adds amount to the mark and returns the new total. The write
// is fsynced before returning.
func (c *Counter) ReserveRange(ctx context.Context, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, errors.New("pebble: reserve amount must be positive")
	}
	c.db.counterMu.Lock()
	defer c.db.counterMu.Unlock()

	cur, err := c.Current()
	if err != nil {
		return 0, err
	}
	if cur > math.MaxUint64-amount {
		return 0, errors.Newf("pebble: counter %s would overflow", c.key)
	}
	next := cur + amount

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	b := c.db.NewBatch()
	defer b.Close()
	if err := b.Set(c.key, buf[:], nil); err != nil {
		return 0, err
	}
	if err := c.db.CommitBatchSync(ctx, b); err != nil {
		return 0, errors.Wrap(err, "pebble: commit counter")
	}
	return next, nil
}
