package deletequeue

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// BufferedUpdates is the drained accumulator form of delete nodes: plain
// slices rather than a linked list, ready for the DWPT/search layer to
// apply against live documents.
type BufferedUpdates struct {
	Terms   []Term
	Queries []Query
}

func (b *BufferedUpdates) absorb(n *node) {
	switch n.kind {
	case kindTerms:
		b.Terms = append(b.Terms, n.terms...)
	case kindQueries:
		b.Queries = append(b.Queries, n.queries...)
	}
}

// FrozenUpdates is the packet freeze_global_buffer hands to a flushing
// DWPT: every global delete that must be considered applied as of that
// flush's publication.
type FrozenUpdates struct {
	Updates BufferedUpdates
	SeqNo   int64
}

// Slice is a thread-captive (head, tail] window into the Queue's delete
// list. Applying it drains the window into a BufferedUpdates and resets
// head to tail.
type Slice struct {
	head *node
	tail *node
}

// IsEmpty reports whether the slice's window is empty.
func (s *Slice) IsEmpty() bool { return s.head == s.tail }

// Apply drains (head, tail] into dst and advances head to tail, releasing
// every consumed node's reference.
func (s *Slice) Apply(q *Queue, dst *BufferedUpdates) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for cur := s.head; cur != s.tail; {
		next := cur.next
		dst.absorb(next)
		q.release(cur)
		cur = next
	}
	s.head = s.tail
}

// Queue is the process-wide delete list: a mutex-guarded tail append point
// with lock-free slice reads on the append path (the mutex here protects
// linked-list mutation, not access to already-published nodes).
type Queue struct {
	mu sync.Mutex

	head *node // sentinel, never applied
	tail *node

	nextSeqNo atomic.Int64

	globalSlice    Slice
	globalUpdates  BufferedUpdates
}

// NewQueue creates an empty queue seeded with a single sentinel node.
func NewQueue() *Queue {
	sentinel := &node{kind: kindSentinel, refs: 1}
	q := &Queue{head: sentinel, tail: sentinel}
	q.globalSlice = Slice{head: sentinel, tail: sentinel}
	q.nextSeqNo.Store(1)
	return q
}

func (q *Queue) newSeqNo() int64 { return q.nextSeqNo.Add(1) - 1 }

// appendLocked links n onto the tail under the queue mutex and returns the
// sequence number it was assigned. Caller must hold q.mu.
func (q *Queue) appendLocked(n *node) int64 {
	n.seqNo = q.newSeqNo()
	n.refs = 1
	q.tail.next = n
	q.tail = n
	return n.seqNo
}

// release drops n's reference; when it reaches zero and it is no longer
// the list head (nothing can reach it anymore), it is unlinked. Walking is
// iterative to avoid unbounded recursion on a long list (§4.1 Node GC).
func (q *Queue) release(n *node) {
	n.refs--
	if n.refs > 0 {
		return
	}
	for q.head != nil && q.head != q.tail && q.head.refs <= 0 {
		q.head = q.head.next
	}
}

// NewSlice returns a fresh slice anchored at the queue's current tail, the
// window a newly-active DWPT begins observing from.
func (q *Queue) NewSlice() *Slice {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tail.refs++
	return &Slice{head: q.tail, tail: q.tail}
}

// AddDeleteTerms appends a terms node, opportunistically draining the
// global slice into the global accumulator via a try-lock.
func (q *Queue) AddDeleteTerms(terms ...Term) int64 {
	q.mu.Lock()
	n := &node{kind: kindTerms, terms: terms}
	seq := q.appendLocked(n)
	q.tryDrainGlobalLocked()
	q.mu.Unlock()
	return seq
}

// AddDeleteQueries appends a queries node.
func (q *Queue) AddDeleteQueries(queries ...Query) int64 {
	q.mu.Lock()
	n := &node{kind: kindQueries, queries: queries}
	seq := q.appendLocked(n)
	q.tryDrainGlobalLocked()
	q.mu.Unlock()
	return seq
}

// AddTermToSlice appends a single-term node and binds callerSlice's tail
// to it atomically with the append — the update invariant of §4.1: the
// delete becomes part of the DWPT's private window in the same locked
// section that assigns it a sequence number.
func (q *Queue) AddTermToSlice(term Term, callerSlice *Slice) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := &node{kind: kindTerms, terms: []Term{term}}
	seq := q.appendLocked(n)
	q.rebindLocked(callerSlice, n)
	return seq
}

// rebindLocked advances s.tail to n, taking a reference on n and releasing
// the slice's previous tail. Caller must hold q.mu.
func (q *Queue) rebindLocked(s *Slice, n *node) {
	n.refs++
	old := s.tail
	s.tail = n
	if old != nil {
		q.release(old)
	}
}

// UpdateSlice issues a sequence number and, if the queue's tail has moved
// past the slice's tail, advances the slice to match.
func (q *Queue) UpdateSlice(s *Slice) (seqNo int64, advanced bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	seqNo = q.newSeqNo()
	if s.tail != q.tail {
		q.rebindLocked(s, q.tail)
		advanced = true
	}
	return seqNo, advanced
}

// tryDrainGlobalLocked opportunistically folds the global slice's pending
// window into the global accumulator. Caller must already hold q.mu — this
// is the queue's own serialization, not an independent try-lock, since Go's
// sync.Mutex offers no safe re-entrant try-lock primitive; correctness
// relies on this always running with the append that triggered it.
func (q *Queue) tryDrainGlobalLocked() {
	if q.globalSlice.tail != q.tail {
		q.rebindLocked(&q.globalSlice, q.tail)
	}
	for cur := q.globalSlice.head; cur != q.globalSlice.tail; {
		next := cur.next
		q.globalUpdates.absorb(next)
		q.release(cur)
		cur = next
	}
	q.globalSlice.head = q.globalSlice.tail
}

// FreezeGlobalBuffer snapshots the current tail, advances callerSlice (if
// given) and the global slice to it, drains the global accumulator, and
// returns the frozen packet — used at flush time to bind every
// already-issued global delete to the flushing segment's publication.
func (q *Queue) FreezeGlobalBuffer(callerSlice *Slice) FrozenUpdates {
	q.mu.Lock()
	defer q.mu.Unlock()

	tail := q.tail
	if callerSlice != nil && callerSlice.tail != tail {
		q.rebindLocked(callerSlice, tail)
	}

	var drained BufferedUpdates
	for cur := q.globalSlice.head; cur != tail; {
		next := cur.next
		drained.absorb(next)
		q.release(cur)
		cur = next
	}
	q.globalSlice.head = tail
	if q.globalSlice.tail != tail {
		q.rebindLocked(&q.globalSlice, tail)
	}

	frozen := FrozenUpdates{Updates: drained, SeqNo: q.newSeqNo()}
	frozen.Updates.Terms = append(frozen.Updates.Terms, q.globalUpdates.Terms...)
	frozen.Updates.Queries = append(frozen.Updates.Queries, q.globalUpdates.Queries...)
	q.globalUpdates = BufferedUpdates{}
	return frozen
}

// Clear resets the global slice's head/tail to the current tail, used on
// full aborts to discard everything accumulated so far.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rebindLocked(&q.globalSlice, q.tail)
	q.globalSlice.head = q.tail
	q.globalUpdates = BufferedUpdates{}
}

// SkipSequenceNumber reserves a gap in the sequence, used by abort paths
// that must jump past in-flight operations.
func (q *Queue) SkipSequenceNumber(n int64) {
	if n <= 0 {
		return
	}
	q.nextSeqNo.Add(n)
}

// TicketCount reports how many nodes currently separate a slice's tail
// from the queue's tail — not part of spec.md directly, used by tests to
// assert the linked-list shrinks as slices advance.
func (q *Queue) TicketCount(s *Slice) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for cur := s.tail; cur != q.tail; cur = cur.next {
		n++
	}
	return n
}

var errClosed = ivxerrors.AlreadyClosed("delete queue")

// ErrClosed is the AlreadyClosed error for a delete queue. No Queue method
// returns it; a queue swapped out by a full flush still accepts operations.
func ErrClosed() error { return errClosed }
