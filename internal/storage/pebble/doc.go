// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// batches and metrics hooks, plus the persisted Counter used as the id
// allocator's high-water mark store.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data/ids",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	ctr := pebblestore.NewCounter(db, "filings")
//	end, _ := ctr.ReserveRange(ctx, 65536) // new high-water mark
package pebblestore
