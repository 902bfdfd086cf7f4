package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopDocsCollectorKeepsTopK(t *testing.T) {
	scores := map[int32]float64{1: 0.5, 2: 0.9, 3: 0.1, 4: 0.9, 5: 0.7}
	docs := []int32{1, 2, 3, 4, 5}

	collector := NewTopDocsCollector(3)
	for _, d := range docs {
		d := d
		scorer := NewScorer(NewSliceIterator([]int32{d}), func(int32) float64 { return scores[d] })
		scorer.Next()
		require.NoError(t, collector.Collect(d, scorer))
	}

	assert.Equal(t, 5, collector.TotalHits())
	top := collector.TopDocs()
	require.Len(t, top, 3)

	// Descending score, ties broken by ascending DocId: doc 2 (0.9) before
	// doc 4 (0.9), then doc 5 (0.7).
	assert.Equal(t, []int32{2, 4, 5}, []int32{top[0].DocID(), top[1].DocID(), top[2].DocID()})
	assert.Equal(t, 0.9, top[0].Score())
	assert.Equal(t, 0.9, top[1].Score())
	assert.Equal(t, 0.7, top[2].Score())
}

func TestChainedCollectorStopsOnFirstEarlyTermination(t *testing.T) {
	// k=2: the first Collect is the 1st hit (count=1 < k, no error); the
	// second Collect pushes count to k and signals ErrCollectionDone.
	early := NewEarlyTerminatingSortingCollector(2)
	recorder := &recordingCollector{}
	chained := NewChainedCollector(early, recorder)

	scorer := NewScorer(NewSliceIterator([]int32{1}), func(int32) float64 { return 1 })
	scorer.Next()
	require.NoError(t, chained.Collect(1, scorer))

	err := chained.Collect(2, scorer)
	assert.ErrorIs(t, err, ErrCollectionDone)
}

func TestChainedCollectorNeedsScores(t *testing.T) {
	scoreless := NewEarlyTerminatingSortingCollector(10)
	scored := NewTopDocsCollector(5)
	chained := NewChainedCollector(scoreless, scored)
	assert.True(t, chained.NeedsScores())

	onlyScoreless := NewChainedCollector(scoreless)
	assert.False(t, onlyScoreless.NeedsScores())
}
