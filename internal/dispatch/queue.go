package dispatch

import (
	"context"
	"sync"
)

// queue is a multiple-producer single-consumer FIFO of envelopes. limit == 0
// means unbounded.
type queue struct {
	mu     sync.Mutex
	items  []*Envelope
	head   int
	limit  int
	closed bool
	// notify is closed and replaced on every push to wake the consumer.
	notify chan struct{}
}

func newQueue(limit int) *queue {
	return &queue{limit: limit, notify: make(chan struct{})}
}

func (q *queue) push(e *Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrStopped
	}
	if q.limit > 0 && len(q.items)-q.head >= q.limit {
		return ErrQueueFull
	}
	q.items = append(q.items, e)
	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}

// pop blocks until an envelope is available or ctx ends. Nothing is popped
// once ctx has ended.
func (q *queue) pop(ctx context.Context) (*Envelope, bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}
		q.mu.Lock()
		if q.head < len(q.items) {
			e := q.items[q.head]
			q.items[q.head] = nil
			q.head++
			if q.head == len(q.items) {
				q.items = q.items[:0]
				q.head = 0
			} else if q.head > 1024 && q.head*2 > len(q.items) {
				q.items = append([]*Envelope(nil), q.items[q.head:]...)
				q.head = 0
			}
			q.mu.Unlock()
			return e, true
		}
		ch := q.notify
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// close rejects further pushes and returns what was still queued.
func (q *queue) close() []*Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := append([]*Envelope(nil), q.items[q.head:]...)
	q.items, q.head = nil, 0
	return rest
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
