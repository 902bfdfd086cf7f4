// Package docwriter implements the outer DocumentsWriter orchestration of
// spec.md §4.6: the glue between producer threads and the index writer,
// tying together the delete queue, DWPT pool, flush control, and ticket
// queue. Grounded on the teacher's data_sync_service.go, which plays the
// analogous "glue between the insert pipeline and flush events" role for
// datanode.
package docwriter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivxsearch/ivx/internal/deletequeue"
	"github.com/ivxsearch/ivx/internal/dwpt"
	"github.com/ivxsearch/ivx/internal/flushcontrol"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
	"github.com/ivxsearch/ivx/internal/metrics"
	"github.com/ivxsearch/ivx/internal/storage"
	"github.com/ivxsearch/ivx/internal/ticketqueue"
	"github.com/ivxsearch/ivx/internal/trace"
)

// Writer is the outer DocumentsWriter.
type Writer struct {
	dir     storage.Directory
	catalog *storage.Catalog

	queue   *deletequeue.Queue
	control *flushcontrol.Controller
	tickets *ticketqueue.Queue

	events chan Event

	closed     int32
	fullFlush  sync.Mutex

	threadCounter uint64
}

// Config bundles the tunables flush control needs.
type Config struct {
	RAMBufferSizeBytes int64
	MaxBufferedDocs     int64
	StallRAMBytes       int64
	MaxThreadStates     int

	// StoredFieldsBackend selects the per-document storage engine; nil
	// defaults to one flat .fdt file per segment.
	StoredFieldsBackend storage.StoredFieldsBackend
}

// New builds a Writer over dir, loading (or creating) its segment catalog.
func New(ctx context.Context, dir storage.Directory, cfg Config) (*Writer, error) {
	catalog, err := storage.NewCatalog(ctx, dir)
	if err != nil {
		return nil, err
	}
	queue := deletequeue.NewQueue()
	control := flushcontrol.New(dir, queue, flushcontrol.Policy{
		RAMBufferSizeBytes: cfg.RAMBufferSizeBytes,
		MaxBufferedDocs:     cfg.MaxBufferedDocs,
	}, cfg.MaxThreadStates, cfg.StallRAMBytes, cfg.StoredFieldsBackend)

	return &Writer{
		dir:     dir,
		catalog: catalog,
		queue:   queue,
		control: control,
		tickets: ticketqueue.New(),
		events:  make(chan Event, 64),
	}, nil
}

// Events exposes the channel producers (and merge policy, once present)
// select on for ApplyDeletes / MergePending / ForcedPurge / FlushFailed /
// DeleteNewFiles notifications.
func (w *Writer) Events() <-chan Event { return w.events }

func (w *Writer) emit(e Event) {
	select {
	case w.events <- e:
	default: // a full channel must never block the writer; the new event is dropped
	}
}

// nextThreadIndex round-robins producer calls across the thread-state
// pool, standing in for an actual goroutine-local identity.
func (w *Writer) nextThreadIndex() int {
	return int(atomic.AddUint64(&w.threadCounter, 1))
}

// UpdateDocument runs the full pre-update / obtain / update / post-update
// pipeline of spec.md §4.6 for a single document.
func (w *Writer) UpdateDocument(ctx context.Context, doc *dwpt.Document, delTerm *deletequeue.Term) (int64, error) {
	return w.UpdateDocuments(ctx, []*dwpt.Document{doc}, delTerm)
}

// UpdateDocuments runs the pipeline for a contiguous document block.
func (w *Writer) UpdateDocuments(ctx context.Context, docs []*dwpt.Document, delTerm *deletequeue.Term) (int64, error) {
	span, ctx := trace.StartSpanFromContext(ctx)
	defer span.Finish()

	if atomic.LoadInt32(&w.closed) != 0 {
		err := ivxerrors.AlreadyClosed("docwriter")
		trace.LogError(span, err)
		return 0, err
	}

	// 1. Pre-update: drain pending flushes opportunistically, block while
	// stalled.
	if err := w.control.PreUpdate(ctx, w.drainFlush); err != nil {
		return 0, err
	}

	// 2. Obtain thread state and invoke the DWPT update.
	ts := w.control.ObtainAndLock(w.nextThreadIndex())
	defer ts.Unlock()

	seq, err := ts.DWPT().UpdateDocuments(docs, delTerm)
	if err != nil {
		if ivxerrors.Is(err, ivxerrors.ErrAbortingFailure) {
			pending := w.control.DoOnAbort(ts)
			if pending != nil {
				w.emit(Event{Kind: EventDeleteNewFiles})
			}
		}
		return 0, err
	}

	// 3. Post-update: flush the DWPT if it became flush-pending. Only that
	// DWPT is flushed here; no other pending flush is picked up at this step.
	if pending := w.control.DoAfterDocument(ts.DWPT()); pending != nil {
		if err := w.drainFlush(pending); err != nil {
			return seq, err
		}
		w.control.DoneFlushing(ts, pending)
	}
	w.emit(Event{Kind: EventApplyDeletes})

	if w.tickets.ShouldForcePurge(w.control.ActiveThreadStates()) {
		metrics.ForcedPurgeTotal.Inc()
		w.emit(Event{Kind: EventForcedPurge})
	}

	return seq, nil
}

// drainFlush enqueues a ticket, runs the DWPT's flush outside any queue
// lock, records the result into the ticket, subtracts the flushed RAM, and
// emits events for failures — spec.md §4.6 step 4.
func (w *Writer) drainFlush(d *dwpt.DWPT) error {
	ticket := w.tickets.Enqueue()
	ramBefore := d.RAMBytesUsed()

	start := time.Now()
	result, err := d.Flush(context.Background())
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		w.tickets.Fail(ticket, err)
		w.control.SubtractFlushedRAM(ramBefore)
		w.emit(Event{Kind: EventFlushFailed, Err: err})
		w.tickets.TryPurge(w.publish)
		return err
	}

	w.tickets.Complete(ticket, result)
	w.control.SubtractFlushedRAM(ramBefore)
	w.tickets.TryPurge(w.publish)
	w.emit(Event{Kind: EventMergePending, SegmentInfo: result.Info})
	return nil
}

// publish hands a completed (or failed) ticket to the catalog, preserving
// the queue's FIFO publication order regardless of flush completion order.
func (w *Writer) publish(p ticketqueue.Published) {
	if p.Err != nil {
		w.emit(Event{Kind: EventFlushFailed, Err: p.Err})
		return
	}
	w.catalog.Publish(p.Segment.Info)
}

// FullFlush runs spec.md §4.6 step 5: under the writer's full-flush lock,
// mark every DWPT flush-pending against a fresh delete queue, drain, wait,
// then force-purge so every segment reaches the catalog in order.
func (w *Writer) FullFlush(ctx context.Context) error {
	w.fullFlush.Lock()
	defer w.fullFlush.Unlock()

	_, pending := w.control.MarkForFullFlush()
	w.control.SwapQueue(deletequeue.NewQueue())

	if err := w.control.WaitForFlush(ctx, pending, w.drainFlush); err != nil {
		w.control.AbortFullFlushes()
		return err
	}

	w.tickets.ForcePurge(func() {}, w.publish)
	return w.catalog.Commit(ctx)
}

// Close marks the writer permanently unusable.
func (w *Writer) Close() {
	if !atomic.CompareAndSwapInt32(&w.closed, 0, 1) {
		return
	}
	close(w.events)
}

// Catalog exposes the published-segment registry for the search layer.
func (w *Writer) Catalog() *storage.Catalog { return w.catalog }
