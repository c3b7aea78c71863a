package pebblestore

import (
	"context"
	"sync"
	"testing"
)

func TestCounterReserveRange(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeAlways)
	ctx := context.Background()
	c := NewCounter(db, "filings")

	if cur, err := c.Current(); err != nil || cur != 0 {
		t.Fatalf("fresh counter = %d, %v", cur, err)
	}
	end, err := c.ReserveRange(ctx, 65536)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if end != 65536 {
		t.Fatalf("end = %d", end)
	}
	end, err = c.ReserveRange(ctx, 131072)
	if err != nil || end != 196608 {
		t.Fatalf("second reserve = %d, %v", end, err)
	}
	if _, err := c.ReserveRange(ctx, 0); err == nil {
		t.Fatalf("zero amount must be rejected")
	}
}

func TestCounterSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := NewCounter(db, "x").ReserveRange(ctx, 10); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = Open(Options{DataDir: dir, Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	end, err := NewCounter(db, "x").ReserveRange(ctx, 5)
	if err != nil || end != 15 {
		t.Fatalf("after reopen = %d, %v", end, err)
	}
}

func TestCounterConcurrentReservationsAreDisjoint(t *testing.T) {
	db, _ := newTestDB(t, FsyncModeNever)
	ctx := context.Background()
	a, b := NewCounter(db, "shared"), NewCounter(db, "shared")

	const n = 50
	ends := make(chan uint64, 2*n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, c := range []*Counter{a, b} {
			wg.Add(1)
			go func(c *Counter) {
				defer wg.Done()
				end, err := c.ReserveRange(ctx, 1)
				if err != nil {
					t.Errorf("reserve: %v", err)
					return
				}
				ends <- end
			}(c)
		}
	}
	wg.Wait()
	close(ends)

	seen := make(map[uint64]bool)
	for e := range ends {
		if seen[e] {
			t.Fatalf("mark %d handed out twice", e)
		}
		seen[e] = true
	}
	if len(seen) != 2*n {
		t.Fatalf("want %d marks, got %d", 2*n, len(seen))
	}
}
