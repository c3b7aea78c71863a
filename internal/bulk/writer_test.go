package bulk

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/filings/internal/persist"
)

type row struct {
	Key string
}

// memTable is an all-or-nothing in-memory table with a unique key.
type memTable struct {
	mu       sync.Mutex
	rows     map[string]bool
	manyErr  error // forced InsertMany failure
	oneCalls int
	manyCall int
}

func newMemTable(existing ...string) *memTable {
	t := &memTable{rows: map[string]bool{}}
	for _, k := range existing {
		t.rows[k] = true
	}
	return t
}

func dupErr(k string) error {
	return errors.Mark(errors.Newf("UNIQUE constraint failed: %s", k), persist.ErrDuplicate)
}

func (t *memTable) InsertMany(_ context.Context, items []row) persist.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.manyCall++
	if t.manyErr != nil {
		return persist.Failed(0, t.manyErr)
	}
	seen := map[string]bool{}
	for _, it := range items {
		if t.rows[it.Key] || seen[it.Key] {
			return persist.Failed(0, dupErr(it.Key))
		}
		seen[it.Key] = true
	}
	for k := range seen {
		t.rows[k] = true
	}
	return persist.Succeeded(int64(len(items)))
}

func (t *memTable) InsertOne(_ context.Context, it row) persist.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.oneCalls++
	if t.rows[it.Key] {
		return persist.Failed(0, dupErr(it.Key))
	}
	t.rows[it.Key] = true
	return persist.Succeeded(1)
}

func (t *memTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{Key: fmt.Sprintf("acc-%04d", i)}
	}
	return out
}

func TestWriteBatchSetPath(t *testing.T) {
	tbl := newMemTable()
	w := New[row](tbl, Options{})
	res, err := w.WriteBatch(context.Background(), rows(10))
	require.NoError(t, err)
	require.Equal(t, Result{SuccessCount: 10}, res)
	require.Zero(t, tbl.oneCalls)
	require.Equal(t, 10, tbl.Len())
}

func TestWriteBatchEmpty(t *testing.T) {
	tbl := newMemTable()
	res, err := New[row](tbl, Options{}).WriteBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
	require.Zero(t, tbl.manyCall)
}

func TestWriteBatchDuplicateFallsBack(t *testing.T) {
	tbl := newMemTable("acc-0137")
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	w := New[row](tbl, Options{Metrics: m})

	res, err := w.WriteBatch(context.Background(), rows(500))
	require.NoError(t, err)
	require.Equal(t, Result{SuccessCount: 499, FailureCount: 1, FailureReason: persist.ReasonDuplicate}, res)
	require.Equal(t, 500, tbl.oneCalls)
	// 499 new rows plus the pre-existing one.
	require.Equal(t, 500, tbl.Len())
	require.InDelta(t, 1, testutil.ToFloat64(m.batches.WithLabelValues(pathFallback)), 0)
	require.InDelta(t, 499, testutil.ToFloat64(m.rows.WithLabelValues("ok")), 0)
}

func TestWriteBatchDuplicateWithinBatch(t *testing.T) {
	tbl := newMemTable()
	items := append(rows(3), row{Key: "acc-0001"})
	res, err := New[row](tbl, Options{}).WriteBatch(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, Result{SuccessCount: 3, FailureCount: 1, FailureReason: persist.ReasonDuplicate}, res)
}

func TestWriteBatchOtherFailureSkipsFallback(t *testing.T) {
	tbl := newMemTable()
	diskFull := errors.New("disk I/O error")
	tbl.manyErr = diskFull
	res, err := New[row](tbl, Options{}).WriteBatch(context.Background(), rows(5))
	require.ErrorIs(t, err, diskFull)
	require.Equal(t, Result{FailureCount: 5, FailureReason: persist.ReasonOther}, res)
	require.Zero(t, tbl.oneCalls)
}

type partialStore struct{ *memTable }

func (p *partialStore) InsertMany(context.Context, []row) persist.Outcome {
	return persist.Failed(2, dupErr("acc-0002"))
}

func TestWriteBatchPartialCommitIsNotRetried(t *testing.T) {
	st := &partialStore{memTable: newMemTable()}
	res, err := New[row](st, Options{}).WriteBatch(context.Background(), rows(4))
	require.ErrorIs(t, err, ErrPartialCommit)
	require.ErrorIs(t, err, persist.ErrDuplicate)
	require.Equal(t, Result{SuccessCount: 2, FailureCount: 2, FailureReason: persist.ReasonDuplicate}, res)
	require.Zero(t, st.oneCalls)
}

// cancellingStore cancels the context after a fixed number of row inserts.
type cancellingStore struct {
	*memTable
	after  int
	cancel context.CancelFunc
}

func (c *cancellingStore) InsertOne(ctx context.Context, it row) persist.Outcome {
	out := c.memTable.InsertOne(ctx, it)
	if c.memTable.oneCalls == c.after {
		c.cancel()
	}
	return out
}

func TestWriteBatchFallbackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &cancellingStore{memTable: newMemTable("acc-0000"), after: 3, cancel: cancel}

	res, err := New[row](st, Options{}).WriteBatch(ctx, rows(10))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 3, st.oneCalls)
	require.Equal(t, Result{SuccessCount: 2, FailureCount: 8, FailureReason: persist.ReasonDuplicate}, res)
}
