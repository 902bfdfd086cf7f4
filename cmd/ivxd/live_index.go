package main

import "github.com/ivxsearch/ivx/internal/docwriter"

// liveIndex adapts docwriter.Writer to searchapi.Searcher, a minimal view
// over the catalog's published segment doc counts — merging per-segment
// postings at query time is future work (not named by any spec.md
// operation) left here as an explicit TODO rather than built out
// speculatively.
type liveIndex struct {
	writer *docwriter.Writer
}

func (l *liveIndex) NumDocs() int32 {
	var n int64
	for _, seg := range l.writer.Catalog().Segments() {
		n += seg.DocCount
	}
	return int32(n)
}

// TODO: resolve postings across all published segments rather than
// returning none; requires a per-segment term-dictionary reader which the
// flat stored-fields backend does not yet expose.
func (l *liveIndex) Postings(field, term string) []int32 {
	return nil
}
