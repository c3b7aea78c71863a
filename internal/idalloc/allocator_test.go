package idalloc

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// memCounter is an in-memory CounterStore recording every reservation.
type memCounter struct {
	mu    sync.Mutex
	mark  uint64
	calls []uint64
}

func (c *memCounter) ReserveRange(_ context.Context, amount uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mark += amount
	c.calls = append(c.calls, amount)
	return c.mark, nil
}

func (c *memCounter) Calls() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.calls...)
}

func TestAllocateRejectsZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockCounterStore(ctrl) // no calls expected
	a := New(store, Options{})
	_, err := a.Allocate(context.Background(), 0)
	require.ErrorIs(t, err, ErrZeroCount)
}

func TestAllocateServesFromWindowWithoutStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockCounterStore(ctrl)
	store.EXPECT().ReserveRange(gomock.Any(), Granularity).Return(Granularity, nil).Times(1)

	a := New(store, Options{})
	ctx := context.Background()
	first, err := a.Allocate(ctx, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, first)

	// The remaining 65526 ids are served without touching the store.
	for want := uint64(11); want < 1000; want += 7 {
		got, err := a.Allocate(ctx, 7)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	last, end := a.Window()
	require.Equal(t, Granularity, end)
	require.Less(t, last, end)
}

func TestAllocateRoundsUpToGranularity(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockCounterStore(ctrl)
	store.EXPECT().ReserveRange(gomock.Any(), uint64(131072)).Return(uint64(131072), nil).Times(1)

	a := New(store, Options{})
	first, err := a.Allocate(context.Background(), 70000)
	require.NoError(t, err)
	require.EqualValues(t, 1, first)

	last, end := a.Window()
	require.EqualValues(t, 70000, last)
	require.EqualValues(t, 131072, end)
}

func TestAllocateStoreFailureIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockCounterStore(ctrl)
	unreachable := errors.New("counter store unreachable")
	store.EXPECT().ReserveRange(gomock.Any(), gomock.Any()).Return(uint64(0), unreachable).Times(1)

	a := New(store, Options{})
	_, err := a.Allocate(context.Background(), 1)
	require.ErrorIs(t, err, unreachable)

	last, end := a.Window()
	require.Zero(t, last)
	require.Zero(t, end)
}

func TestRefillRaceCollapsesToOneStoreCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockCounterStore(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.EXPECT().ReserveRange(gomock.Any(), Granularity).DoAndReturn(
		func(context.Context, uint64) (uint64, error) {
			close(entered)
			<-release
			return Granularity, nil
		}).Times(1)

	a := New(store, Options{})
	ctx := context.Background()

	type res struct {
		first uint64
		err   error
	}
	results := make(chan res, 2)
	go func() {
		f, err := a.Allocate(ctx, 3)
		results <- res{f, err}
	}()
	<-entered
	go func() {
		f, err := a.Allocate(ctx, 5)
		results <- res{f, err}
	}()
	// Give the second caller time to queue behind the refill lock.
	time.Sleep(20 * time.Millisecond)
	close(release)

	r1, r2 := <-results, <-results
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	starts := []uint64{r1.first, r2.first}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	// 3 ids from 1, then 5 ids from 4.
	require.Equal(t, []uint64{1, 4}, starts)
}

func TestConcurrentAllocationsAreDisjointAndContiguous(t *testing.T) {
	store := &memCounter{}
	a := New(store, Options{Granularity: 1024})
	ctx := context.Background()

	type block struct{ first, count uint64 }
	var (
		mu     sync.Mutex
		blocks []block
		wg     sync.WaitGroup
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				c := uint(rng.Intn(300) + 1)
				first, err := a.Allocate(ctx, c)
				if err != nil {
					t.Errorf("allocate: %v", err)
					return
				}
				mu.Lock()
				blocks = append(blocks, block{first, uint64(c)})
				mu.Unlock()
			}
		}(int64(w))
	}
	wg.Wait()

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].first < blocks[j].first })
	next := uint64(1)
	for _, b := range blocks {
		require.Equal(t, next, b.first, "gap or overlap at %d", b.first)
		next += b.count
	}
	for _, amount := range store.Calls() {
		require.Zero(t, amount%1024, "refill %d not a multiple of granularity", amount)
	}
}

func TestForeignReservationStartsFreshWindow(t *testing.T) {
	store := &memCounter{}
	a := New(store, Options{Granularity: 100})
	ctx := context.Background()

	first, err := a.Allocate(ctx, 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, first)

	// Another process reserves behind our back.
	_, _ = store.ReserveRange(ctx, 100)

	first, err = a.Allocate(ctx, 20)
	require.NoError(t, err)
	require.EqualValues(t, 201, first, "must skip the foreign block")
}

func TestMetricsRecordRefills(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	a := New(&memCounter{}, Options{Granularity: 10, Metrics: m})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := a.Allocate(ctx, 4)
		require.NoError(t, err)
	}
	require.InDelta(t, 20, testutil.ToFloat64(m.allocIDs), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.refills.WithLabelValues("ok")), 0)
}
