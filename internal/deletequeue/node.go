// Package deletequeue implements the process-wide, lock-free delete
// lineage of spec.md §4.1: an append-only singly-linked log of delete
// operations, shared across every DWPT via per-thread slices, grounded on
// the teacher's atomic-counter idioms (e.g.
// internal/datanode/flow_graph_insert_buffer_node.go's go.uber.org/atomic
// usage) generalized from a single counter to a linked structure.
package deletequeue

// Term is a (field, bytes) delete predicate, immutable once constructed.
type Term struct {
	Field string
	Bytes []byte
}

// Query is an opaque delete-by-query predicate; evaluation is the search
// layer's responsibility, the queue only carries it.
type Query interface {
	String() string
}

// nodeKind discriminates the payload a node carries.
type nodeKind int

const (
	kindSentinel nodeKind = iota
	kindTerms
	kindQueries
)

// node is one entry in the delete list. Nodes are singly-linked and
// reference-counted: a node is only reclaimed once no slice's head or tail
// still points at it or an earlier node.
type node struct {
	kind    nodeKind
	terms   []Term
	queries []Query
	seqNo   int64

	next *node
	refs int32 // guarded by the queue's tail mutex
}
