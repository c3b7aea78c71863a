package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	logpkg "github.com/rzbill/filings/pkg/log"
)

var (
	// ErrCancelled marks resolutions caused by the caller or by shutdown.
	ErrCancelled = errors.New("dispatch: cancelled")
	// ErrUnknownCommand is the fault for commands without a registered handler.
	ErrUnknownCommand = errors.New("dispatch: no handler for command")
	// ErrQueueFull is returned by Submit when a bounded queue is at capacity.
	ErrQueueFull = errors.New("dispatch: queue full")
	// ErrStopped is returned by Submit once the dispatcher has shut down.
	ErrStopped = errors.New("dispatch: dispatcher stopped")
	// ErrHandlerPanic marks faults produced by a recovered handler panic.
	ErrHandlerPanic = errors.New("dispatch: handler panicked")
)

// DefaultHeartbeatInterval is used when Options.HeartbeatInterval is zero.
const DefaultHeartbeatInterval = 30 * time.Second

// HandlerFunc executes one command. ctx ends when either the caller or the
// dispatcher is cancelled.
type HandlerFunc func(ctx context.Context, cmd Command) (any, error)

// Options configures a Dispatcher.
type Options struct {
	HeartbeatInterval time.Duration
	// MaxQueued bounds the queue; zero leaves it unbounded.
	MaxQueued int
	Clock     clockwork.Clock
	Logger    logpkg.Logger
	Metrics   *Metrics
}

// Dispatcher drains submitted envelopes with a single loop and runs each one
// on its own goroutine.
type Dispatcher struct {
	queue     *queue
	clock     clockwork.Clock
	heartbeat time.Duration
	logger    logpkg.Logger
	metrics   *Metrics

	hmu      sync.RWMutex
	handlers map[string]HandlerFunc

	running  atomic.Bool
	inflight sync.WaitGroup
	active   atomic.Int64
}

// New returns a Dispatcher. Handlers may be registered before or after Run.
func New(opts Options) *Dispatcher {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Dispatcher{
		queue:     newQueue(opts.MaxQueued),
		clock:     opts.Clock,
		heartbeat: opts.HeartbeatInterval,
		logger:    logger.With(logpkg.Component("dispatcher")),
		metrics:   opts.Metrics,
		handlers:  make(map[string]HandlerFunc),
	}
}

// Handle registers h for commands named name, replacing any previous handler.
func (d *Dispatcher) Handle(name string, h HandlerFunc) {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	d.handlers[name] = h
}

func (d *Dispatcher) handler(name string) (HandlerFunc, bool) {
	d.hmu.RLock()
	defer d.hmu.RUnlock()
	h, ok := d.handlers[name]
	return h, ok
}

// Submit enqueues e without blocking. Any command is accepted; a missing
// handler is reported through the envelope.
func (d *Dispatcher) Submit(e *Envelope) error {
	if e == nil || e.cmd == nil {
		return errors.New("dispatch: nil envelope or command")
	}
	if e.State() != StateSubmitted || !e.submitted.CompareAndSwap(false, true) {
		return errors.Newf("dispatch: envelope %s already submitted", e.requestID)
	}
	e.submittedAt = d.clock.Now()
	if err := d.queue.push(e); err != nil {
		d.metrics.rejected(err)
		return err
	}
	d.metrics.setQueued(d.queue.len())
	return nil
}

// Queued returns the number of envelopes waiting to be dequeued.
func (d *Dispatcher) Queued() int { return d.queue.len() }

// InFlight returns the number of envelopes whose handler is running.
func (d *Dispatcher) InFlight() int { return int(d.active.Load()) }

// Run drains the queue and emits heartbeats until ctx ends. Envelopes still
// queued at that point are resolved Cancelled, and Run returns once every
// running handler has returned. Run may only be called once.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatch: Run called twice")
	}
	d.logger.Info("dispatcher started", logpkg.Duration("heartbeat", d.heartbeat))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.loop(gctx, ctx) })
	g.Go(func() error { return d.beat(gctx) })
	err := g.Wait()

	for _, e := range d.queue.close() {
		if e.resolve(StateCancelled, nil, errors.Mark(ErrStopped, ErrCancelled)) {
			d.metrics.resolved(StateCancelled)
		}
	}
	d.metrics.setQueued(0)
	d.inflight.Wait()
	d.logger.Info("dispatcher stopped")
	return err
}

// loop is the single consumer. shutdown is the signal handed to units.
func (d *Dispatcher) loop(ctx, shutdown context.Context) error {
	for {
		e, ok := d.queue.pop(ctx)
		if !ok {
			return nil
		}
		d.metrics.setQueued(d.queue.len())
		d.metrics.observeWait(d.clock.Since(e.submittedAt))

		if !e.advance(StateSubmitted, StateDequeued) {
			// Resolved while queued, by its caller giving up.
			d.metrics.resolved(e.State())
			continue
		}

		h, found := d.handler(e.cmd.CommandName())
		if !found {
			d.logger.Warn("no handler for command, dropping",
				logpkg.RequestID(e.requestID), logpkg.Str("command", e.cmd.CommandName()))
			if e.resolve(StateFaulted, nil, errors.Wrapf(ErrUnknownCommand, "%s", e.cmd.CommandName())) {
				d.metrics.resolved(StateFaulted)
			}
			continue
		}

		d.inflight.Add(1)
		d.active.Add(1)
		d.metrics.setInflight(d.active.Load())
		go d.execute(shutdown, e, h)
	}
}

// execute runs one envelope's handler and resolves it.
func (d *Dispatcher) execute(shutdown context.Context, e *Envelope, h HandlerFunc) {
	defer func() {
		d.metrics.resolved(e.State())
		d.metrics.setInflight(d.active.Add(-1))
		d.inflight.Done()
	}()

	ctx, cancel := mergeCancel(e.ctx, shutdown)
	defer cancel()

	if !e.advance(StateDequeued, StateExecuting) {
		return
	}
	if err := ctx.Err(); err != nil {
		e.resolve(StateCancelled, nil, cancelled(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				logpkg.RequestID(e.requestID),
				logpkg.Str("command", e.cmd.CommandName()),
				logpkg.F("panic", fmt.Sprint(r)),
				logpkg.Str("stack", string(debug.Stack())),
			)
			e.resolve(StateFaulted, nil, errors.Mark(
				errors.Newf("dispatch: %s: %v", e.cmd.CommandName(), r), ErrHandlerPanic))
		}
	}()

	start := d.clock.Now()
	value, err := h(ctx, e.cmd)
	d.metrics.observeRun(e.cmd.CommandName(), d.clock.Since(start))

	switch {
	case err == nil:
		e.resolve(StateCompleted, value, nil)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		e.resolve(StateCancelled, nil, cancelled(err))
	default:
		d.logger.Debug("handler failed",
			logpkg.RequestID(e.requestID), logpkg.Str("command", e.cmd.CommandName()), logpkg.Err(err))
		e.resolve(StateFaulted, nil, err)
	}
}

// beat logs liveness every interval until ctx ends.
func (d *Dispatcher) beat(ctx context.Context) error {
	t := d.clock.NewTicker(d.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.Chan():
			d.metrics.heartbeat()
			d.logger.Info("dispatcher alive",
				logpkg.Int("queued", d.queue.len()),
				logpkg.Int64("inflight", d.active.Load()),
			)
		}
	}
}

// mergeCancel returns a context carrying a's values that is cancelled when
// either a or b is.
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(a)
	if b.Err() != nil {
		cancel(context.Cause(b))
	}
	stop := context.AfterFunc(b, func() { cancel(context.Cause(b)) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
