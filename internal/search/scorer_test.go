package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantScoreScorer(t *testing.T) {
	it := NewSliceIterator([]int32{3, 7})
	s := NewScorer(it, func(docID int32) float64 { return float64(docID) * 2 })
	assert.False(t, s.SupportsTwoPhase())

	assert.Equal(t, int32(3), s.Next())
	score, err := s.Score()
	require.NoError(t, err)
	assert.Equal(t, 6.0, score)
}

func TestScoreOnUnpositionedScorerFails(t *testing.T) {
	it := NewSliceIterator([]int32{3})
	s := NewScorer(it, func(docID int32) float64 { return 1 })
	_, err := s.Score()
	assert.Error(t, err)
}

// TestTwoPhaseNextEquivalesApproximateThenMatches checks spec.md §8
// invariant 9: enumerating a two-phase scorer via Next() yields the same
// set as driving the raw approximation and filtering by Matches().
func TestTwoPhaseNextEquivalesApproximateThenMatches(t *testing.T) {
	approxDocs := []int32{1, 2, 3, 4, 5, 6}
	matching := map[int32]bool{2: true, 4: true, 6: true}

	confirm := func(docID int32) (bool, error) { return matching[docID], nil }

	// Path 1: enumerate through the scorer's own Next().
	approx1 := NewSliceIterator(approxDocs)
	scorer := NewTwoPhaseScorer(approx1, func(int32) float64 { return 1 }, confirm, 1.0)
	require.True(t, scorer.SupportsTwoPhase())
	var viaNext []int32
	for doc := scorer.Next(); doc != NoMoreDocs; doc = scorer.Next() {
		viaNext = append(viaNext, doc)
	}

	// Path 2: drive the raw approximation and filter by Matches() by hand.
	approx2 := NewSliceIterator(approxDocs)
	raw := &simpleTwoPhase{approx: approx2, confirm: confirm}
	var viaApproxMatches []int32
	for doc := raw.approx.Next(); doc != NoMoreDocs; doc = raw.approx.Next() {
		ok, err := raw.Matches()
		require.NoError(t, err)
		if ok {
			viaApproxMatches = append(viaApproxMatches, doc)
		}
	}

	assert.Equal(t, []int32{2, 4, 6}, viaNext)
	assert.Equal(t, viaApproxMatches, viaNext)
}

func TestTwoPhaseAdvanceConfirms(t *testing.T) {
	approx := NewSliceIterator([]int32{1, 2, 3, 4, 5})
	confirm := func(docID int32) (bool, error) { return docID%2 == 0, nil }
	scorer := NewTwoPhaseScorer(approx, func(int32) float64 { return 1 }, confirm, 1.0)

	// Advance(3) lands on 3 (odd, fails confirm) and should roll forward to
	// the next matching doc, 4.
	assert.Equal(t, int32(4), scorer.Advance(3))
}
