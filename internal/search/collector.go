package search

import (
	"container/heap"

	"github.com/ivxsearch/ivx/internal/metrics"
)

// scoredDoc is one entry in a TopDocsCollector's heap.
type scoredDoc struct {
	docID int32
	score float64
}

// docHeap is a min-heap keyed by score ascending (so the root is always
// the weakest of the current top-k), ties broken by descending DocId so
// that popping the root evicts the largest DocId among equal scores,
// matching "ties broken by ascending DocId" in the surviving top-k.
type docHeap []scoredDoc

func (h docHeap) Len() int { return len(h) }
func (h docHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].docID > h[j].docID
}
func (h docHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *docHeap) Push(x interface{}) { *h = append(*h, x.(scoredDoc)) }
func (h *docHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopDocsCollector maintains a min-heap of size k keyed by descending
// score, ties broken by ascending DocId (spec.md §4.7).
type TopDocsCollector struct {
	k    int
	heap docHeap
	hits int
}

// NewTopDocsCollector builds a collector retaining the k best hits.
func NewTopDocsCollector(k int) *TopDocsCollector {
	return &TopDocsCollector{k: k}
}

func (c *TopDocsCollector) SetNextReader(interface{}) {}
func (c *TopDocsCollector) NeedsScores() bool          { return true }

func (c *TopDocsCollector) Collect(docID int32, scorer Scorer) error {
	c.hits++
	score, err := scorer.Score()
	if err != nil {
		return err
	}
	metrics.CollectorHits.WithLabelValues("top_docs").Inc()

	if c.heap.Len() < c.k {
		heap.Push(&c.heap, scoredDoc{docID: docID, score: score})
		return nil
	}
	if c.heap.Len() > 0 && score > c.heap[0].score {
		heap.Pop(&c.heap)
		heap.Push(&c.heap, scoredDoc{docID: docID, score: score})
	}
	return nil
}

// TotalHits returns how many documents were offered to Collect, regardless
// of whether they made the top-k.
func (c *TopDocsCollector) TotalHits() int { return c.hits }

// TopDocs returns the retained hits ordered descending by score (ties
// ascending DocId), the final result spec.md scenario 4 checks.
func (c *TopDocsCollector) TopDocs() []scoredDoc {
	items := make(docHeap, len(c.heap))
	copy(items, c.heap)
	out := make([]scoredDoc, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		top := heap.Pop(&items).(scoredDoc)
		out[i] = top
	}
	return out
}

// DocID returns the DocId of this hit.
func (s scoredDoc) DocID() int32  { return s.docID }
func (s scoredDoc) Score() float64 { return s.score }

// EarlyTerminatingSortingCollector wraps a k-hits contract and signals
// ErrCollectionDone once k hits are collected, assuming the underlying
// segment is already sorted in index order — letting BulkScorer stop
// early rather than score the remainder of the range (spec.md §4.7).
type EarlyTerminatingSortingCollector struct {
	k     int
	count int
}

// NewEarlyTerminatingSortingCollector builds a collector that stops after k
// hits.
func NewEarlyTerminatingSortingCollector(k int) *EarlyTerminatingSortingCollector {
	return &EarlyTerminatingSortingCollector{k: k}
}

func (c *EarlyTerminatingSortingCollector) SetNextReader(interface{}) { c.count = 0 }
func (c *EarlyTerminatingSortingCollector) NeedsScores() bool         { return false }

func (c *EarlyTerminatingSortingCollector) Collect(docID int32, scorer Scorer) error {
	c.count++
	if c.count >= c.k {
		return ErrCollectionDone
	}
	return nil
}

// ChainedCollector forwards Collect to every child collector, stopping the
// whole chain the moment any child signals early termination.
type ChainedCollector struct {
	children []Collector
}

// NewChainedCollector builds a collector fanning out to children.
func NewChainedCollector(children ...Collector) *ChainedCollector {
	return &ChainedCollector{children: children}
}

func (c *ChainedCollector) SetNextReader(leaf interface{}) {
	for _, ch := range c.children {
		ch.SetNextReader(leaf)
	}
}

func (c *ChainedCollector) NeedsScores() bool {
	for _, ch := range c.children {
		if ch.NeedsScores() {
			return true
		}
	}
	return false
}

func (c *ChainedCollector) Collect(docID int32, scorer Scorer) error {
	for _, ch := range c.children {
		if err := ch.Collect(docID, scorer); err != nil {
			return err
		}
	}
	return nil
}
