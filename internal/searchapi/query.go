package searchapi

import (
	"github.com/samber/lo"

	"github.com/ivxsearch/ivx/internal/ivxerrors"
	"github.com/ivxsearch/ivx/internal/search"
)

// buildScorer resolves a QueryNode tree into a Scorer. Term leaves look up
// postings directly; bool.must intersects its children's DocId sets
// (conjunction); match_all matches every DocId in [0, NumDocs) and scores
// each doc by its DocId. There is
// deliberately no disjunction/negation node yet — nothing in
// SearchRequest needs it, and adding it speculatively would be unused
// surface.
func buildScorer(idx Searcher, q QueryNode) (search.Scorer, error) {
	switch {
	case q.Term != nil:
		docs := idx.Postings(q.Term.Field, q.Term.Term)
		it := search.NewSliceIterator(docs)
		return search.NewScorer(it, func(int32) float64 { return 1 }), nil

	case q.Bool != nil:
		if len(q.Bool.Must) == 0 {
			return nil, ivxerrors.IllegalArgument("bool query requires at least one must clause")
		}
		sets := make([][]int32, len(q.Bool.Must))
		for i, child := range q.Bool.Must {
			childScorer, err := buildScorer(idx, child)
			if err != nil {
				return nil, err
			}
			sets[i] = drain(childScorer)
		}
		merged := sets[0]
		for _, s := range sets[1:] {
			merged = intersect(merged, s)
		}
		it := search.NewSliceIterator(merged)
		return search.NewScorer(it, func(docID int32) float64 { return float64(len(sets)) }), nil

	case q.MatchAll:
		it := search.NewSliceIterator(lo.RangeFrom(int32(0), int(idx.NumDocs())))
		return search.NewScorer(it, func(docID int32) float64 { return float64(docID) }), nil

	default:
		return nil, ivxerrors.IllegalArgument("empty query node")
	}
}

func drain(s search.Scorer) []int32 {
	var out []int32
	for doc := s.Next(); doc != search.NoMoreDocs; doc = s.Next() {
		out = append(out, doc)
	}
	return out
}

func intersect(a, b []int32) []int32 {
	var out []int32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
