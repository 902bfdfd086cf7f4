// Package search implements the query-evaluation runtime of spec.md §4.7:
// document iterators with optional two-phase confirmation, a bulk scorer
// driving a scorer across a doc range, and top-K collection. Grounded on
// the teacher's cost-based iteration idioms in
// internal/querynode/segment_loader.go (bounded, monotone progress
// tracking) and generalized to the doc-iterator/scorer contract.
package search

import "github.com/ivxsearch/ivx/internal/common"

// NoMoreDocs is the sentinel DocId marking iterator exhaustion.
const NoMoreDocs = common.NoMoreDocs

// DocIterator is a stateful cursor over matching DocIds.
//
// DocID returns -1 before the first Advance/Next call, then a monotone
// non-decreasing sequence of DocIds, terminating at NoMoreDocs. After
// NoMoreDocs is returned, no further calls are made.
type DocIterator interface {
	DocID() int32
	Next() int32
	Advance(target int32) int32
	// Cost returns an upper-bound hint on the number of matching
	// documents, used by conjunction reordering; valid before iteration.
	Cost() int64
}

// sliceIterator is a DocIterator over a pre-sorted, deduplicated slice of
// DocIds — the leaf iterator postings lists reduce to once decoded.
type sliceIterator struct {
	docs []int32
	pos  int
}

// NewSliceIterator builds a DocIterator over docs, which must already be
// sorted ascending.
func NewSliceIterator(docs []int32) DocIterator {
	return &sliceIterator{docs: docs, pos: -1}
}

func (s *sliceIterator) DocID() int32 {
	if s.pos < 0 {
		return -1
	}
	if s.pos >= len(s.docs) {
		return NoMoreDocs
	}
	return s.docs[s.pos]
}

func (s *sliceIterator) Next() int32 {
	s.pos++
	return s.DocID()
}

func (s *sliceIterator) Advance(target int32) int32 {
	if s.pos < 0 {
		s.pos = 0
	}
	for s.pos < len(s.docs) && s.docs[s.pos] < target {
		s.pos++
	}
	return s.DocID()
}

func (s *sliceIterator) Cost() int64 { return int64(len(s.docs)) }
