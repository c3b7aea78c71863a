package idalloc

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	logpkg "github.com/rzbill/filings/pkg/log"
)

// Granularity is the default minimum block reserved from the CounterStore.
const Granularity uint64 = 65536

// ErrZeroCount is returned when Allocate is asked for no ids.
var ErrZeroCount = errors.New("idalloc: count must be positive")

// CounterStore persists the high-water mark of handed-out ids.
//
//go:generate mockgen -destination=mock_counter_store_test.go -package=idalloc . CounterStore
type CounterStore interface {
	// ReserveRange atomically adds amount to the stored mark and returns the
	// new mark. It must be atomic across processes.
	ReserveRange(ctx context.Context, amount uint64) (uint64, error)
}

// Options configures an Allocator.
type Options struct {
	// Granularity overrides the refill block size. Zero means Granularity.
	Granularity uint64
	Logger      logpkg.Logger
	Metrics     *Metrics
}

// Allocator hands out unique, strictly increasing uint64 ids in contiguous
// blocks, serving from an in-memory window and refilling it from a
// CounterStore only when the window runs dry.
type Allocator struct {
	store       CounterStore
	granularity uint64
	logger      logpkg.Logger
	metrics     *Metrics

	// mu guards the window and is never held across a store call.
	mu       sync.Mutex
	lastUsed uint64
	endID    uint64

	// refillMu serialises refills; it is held across the store call and
	// nothing else.
	refillMu sync.Mutex
}

// New returns an Allocator with an empty window.
func New(store CounterStore, opts Options) *Allocator {
	g := opts.Granularity
	if g == 0 {
		g = Granularity
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Allocator{
		store:       store,
		granularity: g,
		logger:      logger.With(logpkg.Component("idalloc")),
		metrics:     opts.Metrics,
	}
}

// Allocate reserves count contiguous ids and returns the first one. Store
// failures are returned as-is; retrying is the store's concern.
func (a *Allocator) Allocate(ctx context.Context, count uint) (uint64, error) {
	if count == 0 {
		return 0, ErrZeroCount
	}
	n := uint64(count)

	if first, ok := a.take(n); ok {
		a.metrics.allocated(n)
		return first, nil
	}

	a.refillMu.Lock()
	defer a.refillMu.Unlock()

	// Another caller may have refilled while we waited.
	if first, ok := a.take(n); ok {
		a.metrics.allocated(n)
		return first, nil
	}

	idRange, err := roundUp(n, a.granularity)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	mark, err := a.store.ReserveRange(ctx, idRange)
	a.metrics.refilled(time.Since(start), err)
	if err != nil {
		a.logger.Error("id range reservation failed", logpkg.Uint64("range", idRange), logpkg.Err(err))
		return 0, errors.Wrapf(err, "idalloc: reserve %d ids", idRange)
	}
	if mark < idRange {
		return 0, errors.Newf("idalloc: store returned mark %d below reserved range %d", mark, idRange)
	}

	a.mu.Lock()
	if mark < a.endID+idRange {
		a.mu.Unlock()
		return 0, errors.Newf("idalloc: store mark %d does not cover local window end %d", mark, a.endID)
	}
	if mark-idRange != a.endID {
		// Someone else reserved in between; the fresh block starts elsewhere.
		a.lastUsed = mark - idRange
	}
	a.endID = mark
	first := a.lastUsed + 1
	a.lastUsed += n
	a.mu.Unlock()

	a.metrics.allocated(n)
	a.logger.Debug("refilled id window",
		logpkg.Uint64("range", idRange),
		logpkg.Uint64("end_id", mark),
		logpkg.Duration("took", time.Since(start)),
	)
	return first, nil
}

// take advances the window by n if it has room.
func (a *Allocator) take(n uint64) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.endID-a.lastUsed < n {
		return 0, false
	}
	first := a.lastUsed + 1
	a.lastUsed += n
	return first, true
}

// Window returns the current [lastUsed, endID] bounds.
func (a *Allocator) Window() (lastUsed, endID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastUsed, a.endID
}

// roundUp returns the smallest multiple of g that is >= n.
func roundUp(n, g uint64) (uint64, error) {
	blocks := n / g
	if n%g != 0 {
		blocks++
	}
	if blocks > math.MaxUint64/g {
		return 0, errors.Newf("idalloc: count %d overflows the id space", n)
	}
	return blocks * g, nil
}
