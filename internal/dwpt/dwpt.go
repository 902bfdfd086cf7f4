// Package dwpt implements the per-thread document writer of spec.md §4.2:
// each DWPT buffers documents for one in-flight segment, privately owns a
// delete-queue slice, and produces a segment on flush. Grounded on the
// teacher's internal/datanode/segment_replica.go (per-segment buffered
// state under a private mutex) and flow_graph_insert_buffer_node.go (RAM
// accounting before flush).
package dwpt

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/ivxsearch/ivx/internal/deletequeue"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
	"github.com/ivxsearch/ivx/internal/storage"
)

// State is the lifecycle of a DWPT, held so FlushControl can reason about
// ownership without a second source of truth.
type State int32

const (
	StateIdle State = iota
	StateWriting
	StateFlushPending
	StateFlushing
	StateAborted
)

// Document is a pre-tokenized field stream ready for indexing; tokenizer
// pipelines are out of scope (spec.md §1 Non-goals), so fields arrive as
// already-split terms.
type Document struct {
	Fields map[string][]string       // field name -> term stream
	Stored map[string][]byte          // field name -> retrievable bytes
}

// SegmentWriteState is what Flush returns: the frozen segment descriptor
// plus the deletes bound to its publication.
type SegmentWriteState struct {
	Info   *storage.SegmentInfo
	Frozen deletequeue.FrozenUpdates
}

// DWPT buffers documents for one in-flight segment. All mutation happens
// under the owning ThreadState's lock; a DWPT is never shared across
// threads concurrently, only handed off.
type DWPT struct {
	dir         storage.Directory
	segmentName string

	mu          sync.Mutex
	state       State
	slice       *deletequeue.Slice
	queue       *deletequeue.Queue
	postings    map[string][]postingEntry // term -> postings, in doc-arrival order
	docs        []*Document
	lastSeqNo   int64
	fields      storage.StoredFieldsBackend

	ramBytes atomic.Int64
}

type postingEntry struct {
	docID int32
	freq  int32
}

// New creates a DWPT that will write into dir under segmentName, anchored
// on queue's current tail. A nil fields backend defaults to one flat .fdt
// file per segment (storage.FlatStoredFieldsBackend).
func New(dir storage.Directory, segmentName string, queue *deletequeue.Queue, fields storage.StoredFieldsBackend) *DWPT {
	if fields == nil {
		fields = storage.FlatStoredFieldsBackend{}
	}
	return &DWPT{
		dir:         dir,
		segmentName: segmentName,
		state:       StateIdle,
		slice:       queue.NewSlice(),
		queue:       queue,
		postings:    make(map[string][]postingEntry),
		fields:      fields,
	}
}

// NumDocsInRAM returns the number of documents buffered so far.
func (w *DWPT) NumDocsInRAM() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.docs)
}

// RAMBytesUsed reports an estimate of buffered memory, consulted by
// FlushControl's admission policy.
func (w *DWPT) RAMBytesUsed() int64 { return w.ramBytes.Load() }

// State returns the DWPT's current lifecycle state.
func (w *DWPT) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *DWPT) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// UpdateDocument ingests one document, optionally binding a delete term to
// it atomically via the delete queue's update invariant (spec.md §4.1/§4.2):
// if two threads update the same document with the same delete term,
// exactly one wins the visible document because the term enters the
// delete-queue slice in the same operation that assigns the doc its
// sequence number.
func (w *DWPT) UpdateDocument(doc *Document, delTerm *deletequeue.Term) (int64, error) {
	return w.UpdateDocuments([]*Document{doc}, delTerm)
}

// UpdateDocuments ingests a contiguous block of documents, binding delTerm
// (if any) to the whole block.
func (w *DWPT) UpdateDocuments(docs []*Document, delTerm *deletequeue.Term) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateAborted {
		return 0, ivxerrors.AlreadyClosed("dwpt")
	}
	w.state = StateWriting

	var seq int64
	if delTerm != nil {
		seq = w.queue.AddTermToSlice(*delTerm, w.slice)
	} else {
		seq, _ = w.queue.UpdateSlice(w.slice)
	}

	base := int32(len(w.docs))
	for i, doc := range docs {
		docID := base + int32(i)
		if err := w.indexLocked(docID, doc); err != nil {
			// Non-aborting failure: mark this document deleted rather
			// than unwind the whole DWPT, preserving all-or-none per doc.
			w.docs = append(w.docs, nil)
			continue
		}
		w.docs = append(w.docs, doc)
		w.ramBytes.Add(estimateSize(doc))
	}
	w.lastSeqNo = seq
	return seq, nil
}

func (w *DWPT) indexLocked(docID int32, doc *Document) error {
	for field, terms := range doc.Fields {
		key := field + "\x00"
		counts := make(map[string]int32)
		for _, t := range terms {
			counts[key+t]++
		}
		for term, freq := range counts {
			w.postings[term] = append(w.postings[term], postingEntry{docID: docID, freq: freq})
		}
	}
	return nil
}

func estimateSize(doc *Document) int64 {
	var n int64
	for f, terms := range doc.Fields {
		n += int64(len(f))
		for _, t := range terms {
			n += int64(len(t))
		}
	}
	for f, v := range doc.Stored {
		n += int64(len(f) + len(v))
	}
	return n
}

// Abort discards all in-RAM state and marks the DWPT permanently unusable.
// Called on any aborting failure (disk-full during field flush, allocation
// failure corrupting a posting list).
func (w *DWPT) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateAborted
	w.docs = nil
	w.postings = nil
	w.ramBytes.Store(0)
}

// Flush freezes all buffers, writes the segment files through the codec
// layer, and emits a segment descriptor plus the deletes frozen to this
// flush's publication point.
func (w *DWPT) Flush(ctx context.Context) (*SegmentWriteState, error) {
	w.mu.Lock()
	if w.state == StateAborted {
		w.mu.Unlock()
		return nil, ivxerrors.AlreadyClosed("dwpt")
	}
	w.state = StateFlushing
	docs := w.docs
	w.mu.Unlock()

	frozen := w.queue.FreezeGlobalBuffer(w.slice)

	liveDocs := 0
	fw, err := w.fields.NewWriter(ctx, w.dir, w.segmentName)
	if err != nil {
		w.Abort()
		return nil, ivxerrors.AbortingFailure(err)
	}
	for _, d := range docs {
		if d == nil {
			continue // non-aborting failure at ingest time; already deleted
		}
		if _, err := fw.AddDocument(&storage.StoredDocument{Fields: d.Stored}); err != nil {
			w.Abort()
			return nil, ivxerrors.AbortingFailure(err)
		}
		liveDocs++
	}
	if err := fw.Finish(); err != nil {
		w.Abort()
		return nil, ivxerrors.AbortingFailure(err)
	}

	w.mu.Lock()
	terms := make([]string, 0, len(w.postings))
	for term := range w.postings {
		terms = append(terms, term)
	}
	w.mu.Unlock()
	termFilter := storage.BuildTermFilter(terms)
	if err := storage.WriteTermFilter(ctx, w.dir, w.segmentName, termFilter); err != nil {
		w.Abort()
		return nil, ivxerrors.AbortingFailure(err)
	}

	files := append([]string{}, w.fields.SegmentFiles(w.segmentName)...)
	files = append(files, w.segmentName+storage.TermFilterExt)
	info := &storage.SegmentInfo{
		Name:     w.segmentName,
		ID:       storage.NewSegmentID(),
		Codec:    "flat-stored-fields",
		DocCount: int64(liveDocs),
		DelCount: int64(len(docs) - liveDocs),
		Files:    files,
	}
	if err := storage.WriteSegmentInfo(ctx, w.dir, info); err != nil {
		w.Abort()
		return nil, ivxerrors.AbortingFailure(err)
	}

	w.mu.Lock()
	w.docs = nil
	w.ramBytes.Store(0)
	w.mu.Unlock()

	return &SegmentWriteState{Info: info, Frozen: frozen}, nil
}

// Postings exposes the in-RAM inverted index built so far for one term.
// Only this package's tests call it; internal/search does not. Not part of spec.md's flush path; kept unexported-shape to the package
// boundary via a copy.
func (w *DWPT) Postings(term string) []int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := w.postings[term]
	out := make([]int32, len(entries))
	for i, e := range entries {
		out[i] = e.docID
	}
	return out
}
