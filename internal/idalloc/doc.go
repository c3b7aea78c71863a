// Package idalloc implements the process-wide identifier allocator.
//
// The allocator keeps a window (lastUsed, endID] of ids already reserved from
// a CounterStore. Allocate serves from the window under a short mutex; when
// the window is too small it takes a second, refill-only mutex, re-checks the
// window (a concurrent caller may have refilled it), and only then reserves a
// block from the store, rounded up to the granularity (65536 by default).
// When the fresh block directly follows the current window the window is
// extended, so a single process hands out a gap-free sequence.
//
//	alloc := idalloc.New(pebblestore.NewCounter(db, "filings"), idalloc.Options{})
//	first, err := alloc.Allocate(ctx, 500) // ids first .. first+499
package idalloc
