package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceIteratorNext(t *testing.T) {
	it := NewSliceIterator([]int32{2, 5, 9})
	assert.Equal(t, int32(-1), it.DocID())
	assert.Equal(t, int32(2), it.Next())
	assert.Equal(t, int32(5), it.Next())
	assert.Equal(t, int32(9), it.Next())
	assert.Equal(t, NoMoreDocs, it.Next())
	assert.Equal(t, NoMoreDocs, it.DocID())
}

func TestSliceIteratorAdvance(t *testing.T) {
	it := NewSliceIterator([]int32{2, 5, 9, 20})
	assert.Equal(t, int32(9), it.Advance(7))
	assert.Equal(t, int32(20), it.Advance(20))
	assert.Equal(t, NoMoreDocs, it.Advance(21))
}

func TestSliceIteratorCost(t *testing.T) {
	it := NewSliceIterator([]int32{1, 2, 3})
	assert.Equal(t, int64(3), it.Cost())
}
