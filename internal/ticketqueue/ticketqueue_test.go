package ticketqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivxsearch/ivx/internal/dwpt"
	"github.com/ivxsearch/ivx/internal/storage"
)

func TestTryPurgePublishesInFIFOOrder(t *testing.T) {
	q := New()
	t1 := q.Enqueue()
	t2 := q.Enqueue()
	t3 := q.Enqueue()

	// complete out of order; TryPurge must still publish t1 then t2, and
	// stop at t3 since t3 is still pending.
	q.Complete(t2, &dwpt.SegmentWriteState{Info: &storage.SegmentInfo{Name: "_1"}})
	q.Complete(t1, &dwpt.SegmentWriteState{Info: &storage.SegmentInfo{Name: "_0"}})

	var published []string
	q.TryPurge(func(p Published) {
		require.NoError(t, p.Err)
		published = append(published, p.Segment.Info.Name)
	})

	assert.Equal(t, []string{"_0", "_1"}, published)
	assert.Equal(t, 1, q.Len()) // t3 remains

	q.Complete(t3, &dwpt.SegmentWriteState{Info: &storage.SegmentInfo{Name: "_2"}})
	q.TryPurge(func(p Published) {
		published = append(published, p.Segment.Info.Name)
	})
	assert.Equal(t, []string{"_0", "_1", "_2"}, published)
	assert.Equal(t, 0, q.Len())
}

func TestTryPurgePublishesFailedTicket(t *testing.T) {
	q := New()
	t1 := q.Enqueue()
	q.Fail(t1, assert.AnError)

	var got []Published
	q.TryPurge(func(p Published) { got = append(got, p) })
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].Err, assert.AnError)
}

func TestShouldForcePurge(t *testing.T) {
	q := New()
	assert.False(t, q.ShouldForcePurge(2))
	q.Enqueue()
	q.Enqueue()
	q.Enqueue()
	assert.True(t, q.ShouldForcePurge(2))
}

func TestForcePurgeWaitsForPending(t *testing.T) {
	q := New()
	t1 := q.Enqueue()

	waits := 0
	done := make(chan struct{})
	go func() {
		q.Complete(t1, &dwpt.SegmentWriteState{Info: &storage.SegmentInfo{Name: "_0"}})
		close(done)
	}()

	var published []string
	q.ForcePurge(func() {
		waits++
		<-done
	}, func(p Published) {
		published = append(published, p.Segment.Info.Name)
	})
	assert.Equal(t, []string{"_0"}, published)
}
