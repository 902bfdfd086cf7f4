package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCollector struct {
	docs []int32
}

func (c *recordingCollector) SetNextReader(interface{}) {}
func (c *recordingCollector) NeedsScores() bool          { return false }
func (c *recordingCollector) Collect(docID int32, scorer Scorer) error {
	c.docs = append(c.docs, docID)
	return nil
}

func TestBulkScorerMatchAllWithBits(t *testing.T) {
	it := NewSliceIterator([]int32{0, 1, 2, 3, 4})
	scorer := NewScorer(it, func(int32) float64 { return 1 })
	collector := &recordingCollector{}

	bits := AllBits{Len: 5}
	_, err := BulkScorer(scorer, collector, bits, 0, NoMoreDocs)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, collector.docs)
}

func TestBulkScorerRespectsBitsFilter(t *testing.T) {
	it := NewSliceIterator([]int32{0, 1, 2, 3, 4})
	scorer := NewScorer(it, func(int32) float64 { return 1 })
	collector := &recordingCollector{}

	accepted := map[int32]bool{0: true, 2: true, 4: true}
	bits := bitsFunc(func(docID int32) bool { return accepted[docID] })
	_, err := BulkScorer(scorer, collector, bits, 0, NoMoreDocs)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2, 4}, collector.docs)
}

func TestBulkScorerConfirmsTwoPhaseExactlyOnce(t *testing.T) {
	calls := 0
	approx := NewSliceIterator([]int32{1, 2, 3, 4, 5})
	confirm := func(docID int32) (bool, error) {
		calls++
		return docID%2 == 0, nil
	}
	scorer := NewTwoPhaseScorer(approx, func(int32) float64 { return 1 }, confirm, 1.0)
	collector := &recordingCollector{}

	_, err := BulkScorer(scorer, collector, nil, 0, NoMoreDocs)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 4}, collector.docs)
	assert.Equal(t, 5, calls) // one confirmation per approximation candidate
}

func TestBulkScorerStopsOnCollectionDone(t *testing.T) {
	it := NewSliceIterator([]int32{10, 11, 12, 13})
	scorer := NewScorer(it, func(int32) float64 { return 1 })
	collector := NewEarlyTerminatingSortingCollector(2)

	last, err := BulkScorer(scorer, collector, nil, 0, NoMoreDocs)
	require.NoError(t, err)
	assert.Equal(t, int32(11), last)
}

func TestBulkScorerRangeBounds(t *testing.T) {
	it := NewSliceIterator([]int32{0, 5, 10, 15, 20})
	scorer := NewScorer(it, func(int32) float64 { return 1 })
	collector := &recordingCollector{}

	_, err := BulkScorer(scorer, collector, nil, 5, 15)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 10}, collector.docs)
}

type bitsFunc func(docID int32) bool

func (f bitsFunc) Get(docID int32) bool { return f(docID) }
