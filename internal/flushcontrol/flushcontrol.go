// Package flushcontrol implements the admission, back-pressure, stall
// detection, and flush-queue management of spec.md §4.4, grounded on the
// teacher's flow-graph RAM accounting (internal/datanode/flow_graph_insert_buffer_node.go)
// and its condition-variable-style blocking in internal/querynode's
// segment-loading wait groups, generalized to the writer-side flush path.
package flushcontrol

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/ivxsearch/ivx/internal/deletequeue"
	"github.com/ivxsearch/ivx/internal/dwpt"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
	"github.com/ivxsearch/ivx/internal/metrics"
	"github.com/ivxsearch/ivx/internal/storage"
)

// Policy decides when a DWPT must be handed off for flushing.
type Policy struct {
	RAMBufferSizeBytes int64
	MaxBufferedDocs     int64
}

// shouldFlush reports whether w has crossed either configured budget.
func (p Policy) shouldFlush(w *dwpt.DWPT) bool {
	if p.RAMBufferSizeBytes > 0 && w.RAMBytesUsed() >= p.RAMBufferSizeBytes {
		return true
	}
	if p.MaxBufferedDocs > 0 && int64(w.NumDocsInRAM()) >= p.MaxBufferedDocs {
		return true
	}
	return false
}

// ThreadState mediates DWPT ownership: held under its own lock while a
// thread is inside UpdateDocument*, per spec.md §3's ThreadState entity.
type ThreadState struct {
	mu   sync.Mutex
	dwpt *dwpt.DWPT
}

// Lock acquires exclusive access for the duration of a document update.
func (ts *ThreadState) Lock()   { ts.mu.Lock() }
func (ts *ThreadState) Unlock() { ts.mu.Unlock() }

// DWPT returns the thread state's currently-bound writer.
func (ts *ThreadState) DWPT() *dwpt.DWPT { return ts.dwpt }

// Active reports whether the thread state currently owns a DWPT. Like DWPT,
// it does not take the thread state's lock, so the lock holder may call it.
func (ts *ThreadState) Active() bool {
	return ts.dwpt != nil
}

// Controller holds the pool of thread states, the flush policy, the
// pending-flush queue, and the stall condition variable.
type Controller struct {
	dir    storage.Directory
	queue  *deletequeue.Queue
	policy Policy
	fields storage.StoredFieldsBackend

	mu           sync.Mutex
	cond         *sync.Cond
	states       []*ThreadState
	pending      []*dwpt.DWPT
	flushingRAM  atomic.Int64
	stallLimit   int64
	segCounter   atomic.Int64
	fullFlush    bool
}

// New builds a Controller bounded to maxThreadStates concurrent writers. A
// nil fields backend defaults to one flat .fdt file per segment.
func New(dir storage.Directory, queue *deletequeue.Queue, policy Policy, maxThreadStates int, stallRAMBytes int64, fields storage.StoredFieldsBackend) *Controller {
	if fields == nil {
		fields = storage.FlatStoredFieldsBackend{}
	}
	c := &Controller{
		dir:        dir,
		queue:      queue,
		policy:     policy,
		fields:     fields,
		states:     make([]*ThreadState, maxThreadStates),
		stallLimit: stallRAMBytes,
	}
	for i := range c.states {
		c.states[i] = &ThreadState{}
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// ObtainAndLock returns a ThreadState (creating its DWPT on first use) with
// its lock held by the caller for the duration of UpdateDocument*.
func (c *Controller) ObtainAndLock(threadIdx int) *ThreadState {
	ts := c.states[threadIdx%len(c.states)]
	ts.Lock()
	if ts.dwpt == nil {
		name := c.nextSegmentName()
		ts.dwpt = dwpt.New(c.dir, name, c.queue, c.fields)
	}
	return ts
}

func (c *Controller) nextSegmentName() string {
	n := c.segCounter.Add(1)
	return segmentNameForOrdinal(n)
}

func segmentNameForOrdinal(n int64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "_0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append([]byte{digits[n%36]}, buf...)
		n /= 36
	}
	return "_" + string(buf)
}

// DoAfterDocument consults the flush policy; if w has crossed its budget
// its RAM is counted as flushing and it is returned to the caller to hand
// off; it is not added to the pending-flush queue.
func (c *Controller) DoAfterDocument(w *dwpt.DWPT) *dwpt.DWPT {
	if !c.policy.shouldFlush(w) {
		return nil
	}
	c.mu.Lock()
	c.flushingRAM.Add(w.RAMBytesUsed())
	metrics.PendingFlushBytes.Set(float64(c.flushingRAM.Load()))
	c.mu.Unlock()
	return w
}

// PreUpdate helps drain the flush queue opportunistically, then blocks
// until RAM pressure subsides. Back-pressure is cooperative: producer
// threads themselves pick up pending flushes rather than waiting on a
// dedicated flusher.
func (c *Controller) PreUpdate(ctx context.Context, drain func(*dwpt.DWPT) error) error {
	if w := c.nextPending(); w != nil {
		if err := drain(w); err != nil {
			return err
		}
	}
	return c.WaitIfStalled(ctx)
}

// nextPending pops the oldest pending DWPT, if any.
func (c *Controller) nextPending() *dwpt.DWPT {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	w := c.pending[0]
	c.pending = c.pending[1:]
	return w
}

// WaitIfStalled blocks while aggregate pending-flush RAM exceeds the
// configured stall limit, waking whenever SubtractFlushedRAM reduces it.
func (c *Controller) WaitIfStalled(ctx context.Context) error {
	if c.stallLimit <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stalled := false
	for c.flushingRAM.Load() > c.stallLimit {
		if !stalled {
			metrics.StallTotal.Inc()
			stalled = true
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.cond.Wait()
	}
	return nil
}

// SubtractFlushedRAM accounts RAM freed by a completed flush and wakes any
// stalled producers.
func (c *Controller) SubtractFlushedRAM(n int64) {
	c.mu.Lock()
	c.flushingRAM.Sub(n)
	metrics.PendingFlushBytes.Set(float64(c.flushingRAM.Load()))
	c.cond.Broadcast()
	c.mu.Unlock()
}

// DoOnAbort extracts ts's DWPT so the caller can discard it, clearing the
// thread state for reuse.
func (c *Controller) DoOnAbort(ts *ThreadState) *dwpt.DWPT {
	w := ts.dwpt
	ts.dwpt = nil
	return w
}

// DoneFlushing detaches ts's DWPT once it has been handed off and flushed,
// so the next ObtainAndLock call mints a fresh DWPT (and segment name)
// rather than reusing the one already written to disk.
func (c *Controller) DoneFlushing(ts *ThreadState, flushed *dwpt.DWPT) {
	if ts.dwpt == flushed {
		ts.dwpt = nil
	}
}

// AbortPendingFlushes drops every queued flush, aborting each DWPT.
func (c *Controller) AbortPendingFlushes() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.flushingRAM.Store(0)
	c.mu.Unlock()
	for _, w := range pending {
		w.Abort()
	}
}

// AbortFullFlushes cancels an in-progress full flush.
func (c *Controller) AbortFullFlushes() {
	c.mu.Lock()
	c.fullFlush = false
	c.mu.Unlock()
}

// MarkForFullFlush detaches every currently-bound DWPT from its thread
// state, counts their RAM as flushing, and returns them together with the
// current delete queue. It does not install a fresh queue (SwapQueue does)
// and does not add the DWPTs to the pending-flush queue; the caller flushes
// them.
func (c *Controller) MarkForFullFlush() (old *deletequeue.Queue, pending []*dwpt.DWPT) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fullFlush = true
	old = c.queue
	for _, ts := range c.states {
		ts.Lock()
		if ts.dwpt != nil {
			pending = append(pending, ts.dwpt)
			c.flushingRAM.Add(ts.dwpt.RAMBytesUsed())
			ts.dwpt = nil
		}
		ts.Unlock()
	}
	metrics.PendingFlushBytes.Set(float64(c.flushingRAM.Load()))
	return old, pending
}

// SwapQueue installs a fresh delete queue, called once MarkForFullFlush's
// caller has captured the old one.
func (c *Controller) SwapQueue(fresh *deletequeue.Queue) {
	c.mu.Lock()
	c.queue = fresh
	c.mu.Unlock()
}

// ActiveThreadStates counts how many pool slots currently own a DWPT, the
// figure the ticket queue compares its backlog against to decide whether
// to emit a ForcedPurge event.
func (c *Controller) ActiveThreadStates() int {
	n := 0
	for _, ts := range c.states {
		if ts.Active() {
			n++
		}
	}
	return n
}

// WaitForFlush blocks until every DWPT marked by the last MarkForFullFlush
// has finished, via drain.
func (c *Controller) WaitForFlush(ctx context.Context, pending []*dwpt.DWPT, drain func(*dwpt.DWPT) error) error {
	for _, w := range pending {
		if w.State() == dwpt.StateAborted {
			continue
		}
		if err := drain(w); err != nil {
			return ivxerrors.Wrap(err, "wait for full flush")
		}
	}
	return nil
}
