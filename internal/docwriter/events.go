package docwriter

import "github.com/ivxsearch/ivx/internal/storage"

// EventKind discriminates the events DocumentsWriter emits to the
// embedding index writer (spec.md §4.6).
type EventKind int

const (
	EventApplyDeletes EventKind = iota
	EventMergePending
	EventForcedPurge
	EventFlushFailed
	EventDeleteNewFiles
)

// Event is one notification from DocumentsWriter to its owner.
type Event struct {
	Kind        EventKind
	SegmentInfo *storage.SegmentInfo // MergePending
	Files       []string             // DeleteNewFiles
	Err         error                // FlushFailed
}
