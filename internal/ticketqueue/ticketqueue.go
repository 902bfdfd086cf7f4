// Package ticketqueue implements the FIFO flush-publication ordering of
// spec.md §4.5: concurrent flushes must publish in the order they began,
// because each flush freezes a view of the global deletes that must be
// applied before the next flush's view is. Grounded on the teacher's
// mutex-protected queue idioms in internal/querycoordv2/task/scheduler.go.
package ticketqueue

import (
	"sync"

	"github.com/ivxsearch/ivx/internal/dwpt"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
	"github.com/ivxsearch/ivx/internal/metrics"
)

// Status is a ticket's publication state.
type Status int32

const (
	StatusPending Status = iota
	StatusReady
	StatusFailed
)

// Ticket is a placeholder in the flush-publication queue, enqueued
// synchronously when a DWPT begins flushing (this is where the global
// deletes are frozen to it); the flush itself then proceeds without
// holding any queue lock.
type Ticket struct {
	status Status
	result *dwpt.SegmentWriteState
	err    error
}

// Queue is the mutex-protected FIFO of tickets.
type Queue struct {
	mu      sync.Mutex
	tickets []*Ticket
}

// New creates an empty ticket queue.
func New() *Queue { return &Queue{} }

// Enqueue appends a new pending ticket and returns it; the caller is
// expected to have already frozen the delete-queue view for this flush
// before this is visible to other threads.
func (q *Queue) Enqueue() *Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := &Ticket{status: StatusPending}
	q.tickets = append(q.tickets, t)
	metrics.TicketQueueDepth.Set(float64(len(q.tickets)))
	return t
}

// Complete marks t ready with its finished segment.
func (q *Queue) Complete(t *Ticket, result *dwpt.SegmentWriteState) {
	q.mu.Lock()
	t.status = StatusReady
	t.result = result
	q.mu.Unlock()
}

// Fail marks t failed with the flush error.
func (q *Queue) Fail(t *Ticket, err error) {
	q.mu.Lock()
	t.status = StatusFailed
	t.err = err
	q.mu.Unlock()
}

// Published is one segment handed to the index writer by a purge, paired
// with the frozen deletes bound to its publication.
type Published struct {
	Segment *dwpt.SegmentWriteState
	Err     error
}

// ForcePurge walks the queue from the head, waiting for each ticket to
// become ready (spinning the caller-supplied wait when the head is still
// pending) and handing each completed segment to publish, in strict
// insertion order.
func (q *Queue) ForcePurge(wait func(), publish func(Published)) {
	for {
		t, ok := q.peekHead()
		if !ok {
			return
		}
		for {
			q.mu.Lock()
			status := t.status
			q.mu.Unlock()
			if status != StatusPending {
				break
			}
			wait()
		}
		q.popAndPublish(publish)
	}
}

// TryPurge walks the queue from the head while each ticket is
// already-ready, giving up at the first pending ticket instead of waiting.
func (q *Queue) TryPurge(publish func(Published)) {
	for {
		t, ok := q.peekHead()
		if !ok {
			return
		}
		q.mu.Lock()
		pending := t.status == StatusPending
		q.mu.Unlock()
		if pending {
			return
		}
		q.popAndPublish(publish)
	}
}

func (q *Queue) peekHead() (*Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tickets) == 0 {
		return nil, false
	}
	return q.tickets[0], true
}

func (q *Queue) popAndPublish(publish func(Published)) {
	q.mu.Lock()
	t := q.tickets[0]
	q.tickets = q.tickets[1:]
	metrics.TicketQueueDepth.Set(float64(len(q.tickets)))
	q.mu.Unlock()

	switch t.status {
	case StatusReady:
		publish(Published{Segment: t.result})
		metrics.SegmentsPublished.Inc()
	case StatusFailed:
		publish(Published{Err: t.err})
	}
}

// Len reports the current ticket backlog.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tickets)
}

// ShouldForcePurge reports whether the backlog has grown beyond
// activeThreadStates, the signal the writer uses to emit a ForcedPurge
// back-pressure event.
func (q *Queue) ShouldForcePurge(activeThreadStates int) bool {
	return q.Len() > activeThreadStates
}

var errQueueClosed = ivxerrors.AlreadyClosed("ticket queue")

// ErrClosed is the AlreadyClosed error for a ticket queue. No Queue method
// returns it.
func ErrClosed() error { return errQueueClosed }
