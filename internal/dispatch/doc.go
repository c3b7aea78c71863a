// Package dispatch decouples synchronous request handlers from the
// persistence-bound work behind them.
//
// A caller wraps a Command in an Envelope, submits it with
// Dispatcher.Submit and waits with Envelope.Await. One loop drains the queue
// in submission order and starts one tracked goroutine per envelope; that
// goroutine runs the handler registered for the command's name and resolves
// the envelope exactly once as Completed, Faulted or Cancelled.
//
// Envelopes are dequeued in submission order but may complete in any order.
// An envelope is cancelled when either the caller's context or the
// dispatcher's run context ends; cancellation is cooperative and observed by
// handlers through their context.
package dispatch
