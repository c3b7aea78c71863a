package filings

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/filings/internal/dispatch"
	"github.com/rzbill/filings/internal/idalloc"
	"github.com/rzbill/filings/internal/persist"
	sqlitestore "github.com/rzbill/filings/internal/storage/sqlite"
	logpkg "github.com/rzbill/filings/pkg/log"
)

type fixture struct {
	svc  *Service
	repo *Repository
	disp *dispatch.Dispatcher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, db := openRepo(t)
	ctx := context.Background()
	counter, err := sqlitestore.NewCounter(ctx, db, "filings")
	require.NoError(t, err)

	d := dispatch.New(dispatch.Options{})
	svc := NewService(repo, idalloc.New(counter, idalloc.Options{}), d, Options{DefaultPageSize: 10, MaxPageSize: 100})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- d.Run(runCtx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return fixture{svc: svc, repo: repo, disp: d}
}

func batchOf(source string, n int) []Filing {
	items := make([]Filing, n)
	for i := range items {
		items[i] = sample(0, source, fmt.Sprintf("acc-%04d", i))
	}
	return items
}

func TestServiceCreateAndGet(t *testing.T) {
	fx := newFixture(t)
	ctx := logpkg.ContextWithRequestID(context.Background(), "req-1")

	res, err := fx.svc.Create(ctx, batchOf("edgar", 3))
	require.NoError(t, err)
	require.EqualValues(t, 1, res.FirstID)
	require.Equal(t, 3, res.Count)
	require.Equal(t, 3, res.Result.SuccessCount)

	f, err := fx.svc.Get(ctx, res.FirstID+2)
	require.NoError(t, err)
	require.Equal(t, "acc-0002", f.AccessionNo)

	_, err = fx.svc.Get(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceCreateFallsBackOnDuplicate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, []Filing{sample(0, "edgar", "acc-0137")})
	require.NoError(t, err)

	res, err := fx.svc.Create(ctx, batchOf("edgar", 500))
	require.NoError(t, err)
	require.Equal(t, 499, res.Result.SuccessCount)
	require.Equal(t, 1, res.Result.FailureCount)
	require.Equal(t, persist.ReasonDuplicate, res.Result.FailureReason)

	n, err := fx.repo.CountBySource(ctx, "edgar")
	require.NoError(t, err)
	require.EqualValues(t, 500, n, "499 new rows plus the original")
}

func TestServiceRejectsInvalidInputSynchronously(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, nil)
	require.ErrorIs(t, err, ErrInvalid)
	_, err = fx.svc.Create(ctx, []Filing{{Source: "edgar"}})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = fx.svc.Create(ctx, batchOf("edgar", MaxBatchSize+1))
	require.ErrorIs(t, err, ErrInvalid)
	_, err = fx.svc.Get(ctx, 0)
	require.ErrorIs(t, err, ErrInvalid)
	_, err = fx.svc.List(ctx, ListFilings{Source: "edgar", Filter: "symbol =="})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = fx.svc.List(ctx, ListFilings{})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestServiceListWithFilterAcrossPages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	items := batchOf("edgar", 40)
	for i := range items {
		if i%4 == 0 {
			items[i].FormType = "8-K"
		}
	}
	_, err := fx.svc.Create(ctx, items)
	require.NoError(t, err)

	var got []Filing
	req := ListFilings{Source: "edgar", PageSize: 3, Filter: `form_type == "8-K"`}
	for {
		page, err := fx.svc.List(ctx, req)
		require.NoError(t, err)
		got = append(got, page.Items...)
		if page.NextAfter == 0 {
			break
		}
		req.After = page.NextAfter
	}
	require.Len(t, got, 10)
	for i, f := range got {
		require.Equal(t, "8-K", f.FormType)
		require.EqualValues(t, 1+4*i, f.ID)
	}
}

func TestServiceListDefaultsPageSize(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.svc.Create(ctx, batchOf("edgar", 15))
	require.NoError(t, err)

	page, err := fx.svc.List(ctx, ListFilings{Source: "edgar"})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	require.EqualValues(t, 10, page.NextAfter)
}

func TestServiceConcurrentCreatesGetDisjointIDs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[uint64]bool{}
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for b := 0; b < 5; b++ {
				items := batchOf(fmt.Sprintf("src-%d-%d", w, b), 7)
				res, err := fx.svc.Create(ctx, items)
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				mu.Lock()
				for i := 0; i < res.Count; i++ {
					id := res.FirstID + uint64(i)
					if ids[id] {
						t.Errorf("id %d handed out twice", id)
					}
					ids[id] = true
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	require.Len(t, ids, 8*5*7)
}

type failingAllocator struct{ err error }

func (f failingAllocator) Allocate(context.Context, uint) (uint64, error) { return 0, f.err }

func TestServiceAllocatorFailureFaults(t *testing.T) {
	repo, _ := openRepo(t)
	d := dispatch.New(dispatch.Options{})
	unreachable := errors.New("counter store unreachable")
	svc := NewService(repo, failingAllocator{err: unreachable}, d, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() { cancel(); <-done }()

	_, err := svc.Create(context.Background(), batchOf("edgar", 2))
	require.ErrorIs(t, err, unreachable)
	n, err := repo.CountBySource(context.Background(), "edgar")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestServiceCallerTimeout(t *testing.T) {
	repo, _ := openRepo(t)
	d := dispatch.New(dispatch.Options{}) // never run
	svc := NewService(repo, failingAllocator{}, d, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Get(ctx, 1)
	require.ErrorIs(t, err, dispatch.ErrCancelled)
}
