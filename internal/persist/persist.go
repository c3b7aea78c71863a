// Package persist defines the statement contract shared by the storage
// layers, the bulk writer and the request handlers: a statement goes in, a
// classified Outcome comes out.
package persist

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Reason classifies a failed statement. The set is closed; consumers switch on
// it exhaustively.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonDuplicate
	ReasonOther
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonDuplicate:
		return "duplicate"
	case ReasonOther:
		return "other"
	default:
		return "unknown"
	}
}

// MarshalText renders the reason by name.
func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText parses a name produced by MarshalText.
func (r *Reason) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*r = ReasonNone
	case "duplicate":
		*r = ReasonDuplicate
	case "other":
		*r = ReasonOther
	default:
		return errors.Newf("unknown failure reason %q", b)
	}
	return nil
}

// ErrDuplicate marks errors caused by a unique or primary key collision.
var ErrDuplicate = errors.New("duplicate key")

// ErrTransient marks errors that are worth retrying (lock contention).
var ErrTransient = errors.New("transient storage error")

// Statement is a parameterised write.
type Statement struct {
	Query string
	Args  []any
}

// Outcome is the result of executing a Statement. Reason is ReasonNone exactly
// when Err is nil.
type Outcome struct {
	RowsAffected int64
	Reason       Reason
	Err          error
}

// OK reports whether the statement succeeded.
func (o Outcome) OK() bool { return o.Reason == ReasonNone }

// Succeeded builds a successful Outcome.
func Succeeded(rows int64) Outcome { return Outcome{RowsAffected: rows} }

// Failed builds a failed Outcome, classifying err.
func Failed(rows int64, err error) Outcome {
	if err == nil {
		return Outcome{RowsAffected: rows}
	}
	return Outcome{RowsAffected: rows, Reason: Classify(err), Err: err}
}

// Classify derives the Reason for err from its marks.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrDuplicate):
		return ReasonDuplicate
	default:
		return ReasonOther
	}
}

// Executor runs statements, retrying transient failures under its own policy.
type Executor interface {
	Exec(ctx context.Context, stmt Statement) Outcome
}

// RetryPolicy bounds the retries an Executor performs.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when a zero policy is supplied.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialInterval: 10 * time.Millisecond, MaxInterval: 500 * time.Millisecond}
}
