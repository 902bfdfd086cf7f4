package search

import "github.com/ivxsearch/ivx/internal/ivxerrors"

// TwoPhaseIterator splits matching into a cheap approximate positioning
// step and an expensive per-candidate confirmation, per spec.md §4.7.
type TwoPhaseIterator interface {
	// Approximation returns the DocIterator driving approximate
	// positioning; its DocIds are a superset of actual matches.
	Approximation() DocIterator
	// Matches confirms whether the approximation's current doc is an
	// actual match. Only valid immediately after a successful
	// Approximation advance.
	Matches() (bool, error)
	// MatchCost estimates the per-candidate confirmation cost, used to
	// order which leg of a conjunction confirms first.
	MatchCost() float64
}

// Scorer is a positioned DocIterator that can also produce a score for
// its current document. Score is only valid immediately after a
// successful positioning call; calling it unpositioned or after
// exhaustion is a programming error (spec.md §4.7).
type Scorer interface {
	DocIterator
	Score() (float64, error)

	// SupportsTwoPhase reports whether TwoPhase returns a usable
	// TwoPhaseIterator.
	SupportsTwoPhase() bool
	// TwoPhase returns the two-phase view of this scorer, or nil if
	// SupportsTwoPhase is false.
	TwoPhase() TwoPhaseIterator
}

// constantScoreScorer scores each matching doc with the per-doc score
// function it was built with — the MatchAll / term-postings scorer shape
// spec.md's scenarios exercise.
type constantScoreScorer struct {
	DocIterator
	score    func(docID int32) float64
	twoPhase TwoPhaseIterator
}

// NewScorer wraps it with a per-doc scoring function and no two-phase
// confirmation.
func NewScorer(it DocIterator, score func(docID int32) float64) Scorer {
	return &constantScoreScorer{DocIterator: it, score: score}
}

// NewTwoPhaseScorer wraps an approximate iterator with a confirm
// predicate, advertising two-phase support.
func NewTwoPhaseScorer(approx DocIterator, score func(docID int32) float64, confirm func(docID int32) (bool, error), matchCost float64) Scorer {
	tp := &simpleTwoPhase{approx: approx, confirm: confirm, matchCost: matchCost}
	return &constantScoreScorer{DocIterator: &confirmingIterator{approx: approx, tp: tp}, score: score, twoPhase: tp}
}

func (s *constantScoreScorer) Score() (float64, error) {
	doc := s.DocID()
	if doc < 0 || doc == NoMoreDocs {
		return 0, ivxerrors.IllegalArgument("score() called on unpositioned or exhausted scorer")
	}
	return s.score(doc), nil
}

func (s *constantScoreScorer) SupportsTwoPhase() bool { return s.twoPhase != nil }
func (s *constantScoreScorer) TwoPhase() TwoPhaseIterator { return s.twoPhase }

type simpleTwoPhase struct {
	approx    DocIterator
	confirm   func(docID int32) (bool, error)
	matchCost float64
}

func (t *simpleTwoPhase) Approximation() DocIterator { return t.approx }
func (t *simpleTwoPhase) Matches() (bool, error)     { return t.confirm(t.approx.DocID()) }
func (t *simpleTwoPhase) MatchCost() float64         { return t.matchCost }

// confirmingIterator presents a plain DocIterator view over a two-phase
// pair for callers that want `next()`-equivalence (spec.md §8 invariant 9:
// enumerating via next() yields the same set as approximate_next()
// filtered by matches()).
type confirmingIterator struct {
	approx DocIterator
	tp     *simpleTwoPhase
}

func (c *confirmingIterator) DocID() int32 { return c.approx.DocID() }

func (c *confirmingIterator) Next() int32 {
	for {
		doc := c.approx.Next()
		if doc == NoMoreDocs {
			return NoMoreDocs
		}
		ok, err := c.tp.Matches()
		if err == nil && ok {
			return doc
		}
	}
}

func (c *confirmingIterator) Advance(target int32) int32 {
	doc := c.approx.Advance(target)
	if doc == NoMoreDocs {
		return NoMoreDocs
	}
	ok, err := c.tp.Matches()
	if err == nil && ok {
		return doc
	}
	return c.Next()
}

func (c *confirmingIterator) Cost() int64 { return c.approx.Cost() }
