package bulk

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/rzbill/filings/internal/persist"
	logpkg "github.com/rzbill/filings/pkg/log"
)

// ErrPartialCommit is returned when a set-based insert reported a duplicate
// key after some rows were already committed. The fallback is not safe then.
var ErrPartialCommit = errors.New("bulk: set-based insert committed rows before failing")

// Inserter is the store a Writer drives. InsertMany must be all-or-nothing.
type Inserter[T any] interface {
	InsertMany(ctx context.Context, items []T) persist.Outcome
	InsertOne(ctx context.Context, item T) persist.Outcome
}

// Result tallies a WriteBatch call. FailureCount is zero whenever
// FailureReason is persist.ReasonNone.
type Result struct {
	SuccessCount  int            `json:"successCount"`
	FailureCount  int            `json:"failureCount"`
	FailureReason persist.Reason `json:"failureReason"`
}

// Options configures a Writer.
type Options struct {
	Logger  logpkg.Logger
	Metrics *Metrics
}

// Writer holds no state between calls; concurrent WriteBatch calls are independent.
type Writer[T any] struct {
	store   Inserter[T]
	logger  logpkg.Logger
	metrics *Metrics
}

// New returns a Writer over store.
func New[T any](store Inserter[T], opts Options) *Writer[T] {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Writer[T]{store: store, logger: logger.With(logpkg.Component("bulk")), metrics: opts.Metrics}
}

// WriteBatch inserts items. The error is non-nil only when the batch failed for
// a reason other than a duplicate key, or when ctx ended during the fallback;
// the Result is meaningful in every case.
func (w *Writer[T]) WriteBatch(ctx context.Context, items []T) (Result, error) {
	if len(items) == 0 {
		return Result{}, nil
	}

	out := w.store.InsertMany(ctx, items)
	switch out.Reason {
	case persist.ReasonNone:
		w.metrics.batch(pathSet)
		return Result{SuccessCount: len(items)}, nil

	case persist.ReasonDuplicate:
		if out.RowsAffected > 0 {
			w.metrics.batch(pathError)
			return Result{
				SuccessCount:  int(out.RowsAffected),
				FailureCount:  len(items) - int(out.RowsAffected),
				FailureReason: persist.ReasonDuplicate,
			}, errors.Mark(errors.Wrapf(out.Err, "bulk: %d of %d rows committed", out.RowsAffected, len(items)), ErrPartialCommit)
		}
		w.logger.Warn("batch rejected for duplicate key, inserting row by row",
			logpkg.Int("rows", len(items)), logpkg.Err(out.Err))
		w.metrics.batch(pathFallback)
		return w.fallback(ctx, items)

	case persist.ReasonOther:
		w.metrics.batch(pathError)
		return Result{FailureCount: len(items), FailureReason: persist.ReasonOther},
			errors.Wrapf(out.Err, "bulk: insert %d rows", len(items))

	default:
		return Result{}, errors.AssertionFailedf("bulk: unhandled failure reason %v", out.Reason)
	}
}

// fallback inserts items one at a time, continuing past failures.
func (w *Writer[T]) fallback(ctx context.Context, items []T) (Result, error) {
	res := Result{FailureReason: persist.ReasonDuplicate}
	var others int
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			w.logger.Warn("row-by-row insert interrupted",
				logpkg.Int("done", i), logpkg.Int("rows", len(items)), logpkg.Err(err))
			res.FailureCount += len(items) - i
			return res, errors.Wrapf(err, "bulk: fallback stopped after %d of %d rows", i, len(items))
		}
		out := w.store.InsertOne(ctx, item)
		switch out.Reason {
		case persist.ReasonNone:
			res.SuccessCount++
		case persist.ReasonDuplicate:
			res.FailureCount++
		case persist.ReasonOther:
			res.FailureCount++
			others++
			w.logger.Error("row insert failed", logpkg.Int("index", i), logpkg.Err(out.Err))
		}
	}
	w.metrics.fallbackRows(res.SuccessCount, res.FailureCount)
	if others > 0 {
		w.logger.Warn("row-by-row insert hit non-duplicate failures", logpkg.Int("count", others))
	}
	return res, nil
}
