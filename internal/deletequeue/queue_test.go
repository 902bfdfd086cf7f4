package deletequeue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddTermToSliceBindsUpdateAtomically(t *testing.T) {
	q := NewQueue()
	slice := q.NewSlice()

	seq := q.AddTermToSlice(Term{Field: "id", Bytes: []byte("doc-1")}, slice)
	assert.Positive(t, seq)

	var drained BufferedUpdates
	slice.Apply(q, &drained)
	assert.Len(t, drained.Terms, 1)
	assert.Equal(t, "id", drained.Terms[0].Field)
}

// TestConcurrentUpdateSameTerm exercises two DWPTs racing to bind a delete
// term for the same logical document: both go through AddTermToSlice, and
// each call is serialized by the queue's own mutex, so both sequence numbers
// come out distinct and both deletes are observable once both slices drain.
// Whichever goroutine wins the mutex race binds the earlier node, so the
// 1-vs-2 split is assigned to a slice non-deterministically; only the
// multiset of counts is guaranteed.
func TestConcurrentUpdateSameTerm(t *testing.T) {
	q := NewQueue()
	sliceA := q.NewSlice()
	sliceB := q.NewSlice()

	var wg sync.WaitGroup
	seqs := make([]int64, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		seqs[0] = q.AddTermToSlice(Term{Field: "id", Bytes: []byte("doc-1")}, sliceA)
	}()
	go func() {
		defer wg.Done()
		seqs[1] = q.AddTermToSlice(Term{Field: "id", Bytes: []byte("doc-1")}, sliceB)
	}()
	wg.Wait()

	assert.NotEqual(t, seqs[0], seqs[1])

	var drainedA, drainedB BufferedUpdates
	sliceA.Apply(q, &drainedA)
	sliceB.Apply(q, &drainedB)
	counts := []int{len(drainedA.Terms), len(drainedB.Terms)}
	assert.ElementsMatch(t, []int{1, 2}, counts) // the earlier-bound slice sees only its own node, the later-bound slice sees both
}

func TestSequenceNumbersStrictlyIncrease(t *testing.T) {
	q := NewQueue()
	prev := int64(0)
	for i := 0; i < 50; i++ {
		seq := q.AddDeleteTerms(Term{Field: "f", Bytes: []byte("v")})
		assert.Greater(t, seq, prev)
		prev = seq
	}
}

func TestFreezeGlobalBufferDrainsAndAdvances(t *testing.T) {
	q := NewQueue()
	q.AddDeleteTerms(Term{Field: "f", Bytes: []byte("a")})
	q.AddDeleteTerms(Term{Field: "f", Bytes: []byte("b")})

	slice := q.NewSlice()
	frozen := q.FreezeGlobalBuffer(slice)
	assert.Len(t, frozen.Updates.Terms, 2)
	assert.Positive(t, frozen.SeqNo)

	// a second freeze with nothing new added drains nothing further.
	frozen2 := q.FreezeGlobalBuffer(slice)
	assert.Empty(t, frozen2.Updates.Terms)
}

func TestTicketCountShrinksAsSliceAdvances(t *testing.T) {
	q := NewQueue()
	slice := q.NewSlice()
	q.AddDeleteTerms(Term{Field: "f", Bytes: []byte("a")})
	q.AddDeleteTerms(Term{Field: "f", Bytes: []byte("b")})
	assert.Equal(t, 2, q.TicketCount(slice))

	_, advanced := q.UpdateSlice(slice)
	assert.True(t, advanced)
	assert.Equal(t, 0, q.TicketCount(slice))
}
