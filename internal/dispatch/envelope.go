package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rzbill/filings/pkg/id"
)

// Command is a request variant. Handlers are looked up by CommandName.
type Command interface {
	CommandName() string
}

// State is an envelope's position in its lifecycle.
type State int32

const (
	StateSubmitted State = iota
	StateDequeued
	StateExecuting
	StateCompleted
	StateFaulted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateDequeued:
		return "dequeued"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the resolved states.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFaulted || s == StateCancelled
}

// Envelope correlates one submitted command with its eventual result.
type Envelope struct {
	requestID   string
	ctx         context.Context
	cmd         Command
	submittedAt time.Time

	state     atomic.Int32
	submitted atomic.Bool

	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewEnvelope wraps cmd. ctx is the caller's cancellation; an empty requestID
// is replaced with a generated one.
func NewEnvelope(ctx context.Context, requestID string, cmd Command) *Envelope {
	if requestID == "" {
		requestID = id.NewString()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Envelope{
		requestID: requestID,
		ctx:       ctx,
		cmd:       cmd,
		done:      make(chan struct{}),
	}
}

func (e *Envelope) RequestID() string { return e.requestID }

func (e *Envelope) Command() Command { return e.cmd }

// Context returns the caller's context.
func (e *Envelope) Context() context.Context { return e.ctx }

func (e *Envelope) State() State { return State(e.state.Load()) }

// Done is closed once the envelope is resolved.
func (e *Envelope) Done() <-chan struct{} { return e.done }

// Result returns the resolution. It is only meaningful after Done is closed.
func (e *Envelope) Result() (any, error) {
	select {
	case <-e.done:
		return e.value, e.err
	default:
		return nil, errors.New("dispatch: envelope not resolved")
	}
}

// Await blocks until the envelope is resolved or either ctx or the envelope's
// own context ends. In the latter case the envelope is resolved Cancelled,
// unless a result won the race, and that resolution is returned.
func (e *Envelope) Await(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = e.ctx
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		e.resolve(StateCancelled, nil, cancelled(ctx.Err()))
	case <-e.ctx.Done():
		e.resolve(StateCancelled, nil, cancelled(e.ctx.Err()))
	}
	<-e.done
	return e.value, e.err
}

// Await is the typed form of Envelope.Await.
func Await[T any](ctx context.Context, e *Envelope) (T, error) {
	var zero T
	v, err := e.Await(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.AssertionFailedf("dispatch: %s returned %T, want %T", e.cmd.CommandName(), v, zero)
	}
	return t, nil
}

// advance moves the envelope from one non-terminal state to the next.
func (e *Envelope) advance(from, to State) bool {
	return e.state.CompareAndSwap(int32(from), int32(to))
}

// resolve fills the completion slot. Only the first call has any effect.
func (e *Envelope) resolve(state State, value any, err error) bool {
	won := false
	e.once.Do(func() {
		e.value, e.err = value, err
		e.state.Store(int32(state))
		close(e.done)
		won = true
	})
	return won
}

func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return errors.Mark(errors.Wrap(cause, "dispatch: request cancelled"), ErrCancelled)
}
