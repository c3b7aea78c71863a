package filings

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rzbill/filings/internal/bulk"
	"github.com/rzbill/filings/internal/dispatch"
	logpkg "github.com/rzbill/filings/pkg/log"
)

// maxFilterScans bounds how many store pages a filtered list reads before
// returning a short page with a continuation.
const maxFilterScans = 16

// IDAllocator hands out contiguous id blocks.
type IDAllocator interface {
	Allocate(ctx context.Context, count uint) (uint64, error)
}

// Dispatcher is the part of *dispatch.Dispatcher the service uses.
type Dispatcher interface {
	Handle(name string, h dispatch.HandlerFunc)
	Submit(e *dispatch.Envelope) error
}

// Options configures a Service.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	Logger          logpkg.Logger
	BulkMetrics     *bulk.Metrics
	// Now defaults to time.Now; filters see it as now_ms.
	Now func() time.Time
}

// Service is the synchronous facade the transports call. Every call goes
// through the dispatcher.
type Service struct {
	repo    *Repository
	alloc   IDAllocator
	writer  *bulk.Writer[Filing]
	disp    Dispatcher
	logger  logpkg.Logger
	defSize int
	maxSize int
	now     func() time.Time
}

// NewService registers the filings handlers on d and returns the facade.
func NewService(repo *Repository, alloc IDAllocator, d Dispatcher, opts Options) *Service {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 50
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = max(500, opts.DefaultPageSize)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	logger = logger.With(logpkg.Component("filings"))

	s := &Service{
		repo:    repo,
		alloc:   alloc,
		writer:  bulk.New[Filing](repo, bulk.Options{Logger: logger, Metrics: opts.BulkMetrics}),
		disp:    d,
		logger:  logger,
		defSize: opts.DefaultPageSize,
		maxSize: opts.MaxPageSize,
		now:     opts.Now,
	}
	for _, name := range []string{cmdGet, cmdList, cmdCreate} {
		d.Handle(name, s.handle)
	}
	return s
}

// Get returns one filing.
func (s *Service) Get(ctx context.Context, id uint64) (Filing, error) {
	if id == 0 {
		return Filing{}, errors.Mark(errors.New("id is required"), ErrInvalid)
	}
	return call[Filing](ctx, s.disp, GetFiling{ID: id})
}

// List returns a page of a source's filings.
func (s *Service) List(ctx context.Context, req ListFilings) (Page, error) {
	if req.Source == "" {
		return Page{}, errors.Mark(errors.New("source is required"), ErrInvalid)
	}
	switch {
	case req.PageSize <= 0:
		req.PageSize = s.defSize
	case req.PageSize > s.maxSize:
		req.PageSize = s.maxSize
	}
	// Compile up front so a bad filter is rejected before queueing.
	if _, err := newCELFilter(req.Filter); err != nil {
		return Page{}, err
	}
	return call[Page](ctx, s.disp, req)
}

// Create inserts items and assigns their ids.
func (s *Service) Create(ctx context.Context, items []Filing) (CreateResult, error) {
	if len(items) == 0 {
		return CreateResult{}, errors.Mark(errors.New("no filings given"), ErrInvalid)
	}
	if len(items) > MaxBatchSize {
		return CreateResult{}, errors.Mark(errors.Newf("%d filings exceeds the batch limit of %d", len(items), MaxBatchSize), ErrInvalid)
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return CreateResult{}, errors.Wrapf(err, "filing %d", i)
		}
	}
	return call[CreateResult](ctx, s.disp, CreateFilings{Items: items})
}

func call[T any](ctx context.Context, d Dispatcher, cmd Command) (T, error) {
	e := dispatch.NewEnvelope(ctx, logpkg.RequestIDFromContext(ctx), cmd)
	if err := d.Submit(e); err != nil {
		var zero T
		return zero, err
	}
	return dispatch.Await[T](ctx, e)
}

// handle is registered for every filings command.
func (s *Service) handle(ctx context.Context, cmd dispatch.Command) (any, error) {
	switch c := cmd.(type) {
	case GetFiling:
		return s.repo.Get(ctx, c.ID)
	case ListFilings:
		return s.list(ctx, c)
	case CreateFilings:
		return s.create(ctx, c)
	default:
		return nil, errors.Wrapf(dispatch.ErrUnknownCommand, "%T", cmd)
	}
}

func (s *Service) list(ctx context.Context, c ListFilings) (Page, error) {
	filter, err := newCELFilter(c.Filter)
	if err != nil {
		return Page{}, err
	}
	if !filter.enabled {
		return s.repo.ListBySource(ctx, c.Source, PageRequest{Size: c.PageSize, After: c.After})
	}

	now := s.now()
	out := Page{Items: make([]Filing, 0, c.PageSize)}
	after := c.After
	for scans := 0; scans < maxFilterScans; scans++ {
		page, err := s.repo.ListBySource(ctx, c.Source, PageRequest{Size: c.PageSize, After: after})
		if err != nil {
			return Page{}, err
		}
		for _, f := range page.Items {
			if !filter.Eval(f, now) {
				continue
			}
			out.Items = append(out.Items, f)
			if len(out.Items) == c.PageSize {
				if f.ID != page.Items[len(page.Items)-1].ID || page.NextAfter != 0 {
					out.NextAfter = f.ID
				}
				return out, nil
			}
		}
		if page.NextAfter == 0 {
			return out, nil
		}
		after = page.NextAfter
	}
	out.NextAfter = after
	return out, nil
}

func (s *Service) create(ctx context.Context, c CreateFilings) (CreateResult, error) {
	first, err := s.alloc.Allocate(ctx, uint(len(c.Items)))
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "filings: allocate ids")
	}
	rows := make([]Filing, len(c.Items))
	for i, f := range c.Items {
		f.ID = first + uint64(i)
		rows[i] = f
	}
	res, err := s.writer.WriteBatch(ctx, rows)
	out := CreateResult{FirstID: first, Count: len(rows), Result: res}
	if err != nil {
		return out, err
	}
	s.logger.Info("filings created",
		logpkg.RequestID(logpkg.RequestIDFromContext(ctx)),
		logpkg.Uint64("first_id", first),
		logpkg.Int("inserted", res.SuccessCount),
		logpkg.Int("rejected", res.FailureCount),
	)
	return out, nil
}
