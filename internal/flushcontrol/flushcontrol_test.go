package flushcontrol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivxsearch/ivx/internal/deletequeue"
	"github.com/ivxsearch/ivx/internal/dwpt"
	"github.com/ivxsearch/ivx/internal/storage"
)

func newTestController(t *testing.T, policy Policy, maxThreads int, stallBytes int64) *Controller {
	t.Helper()
	dir, err := storage.NewFSDirectory(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	queue := deletequeue.NewQueue()
	return New(dir, queue, policy, maxThreads, stallBytes, nil)
}

func TestObtainAndLockCreatesDWPTOnFirstUse(t *testing.T) {
	c := newTestController(t, Policy{}, 4, 0)
	ts := c.ObtainAndLock(0)
	defer ts.Unlock()
	assert.NotNil(t, ts.DWPT())
	assert.True(t, ts.Active())
}

func TestDoAfterDocumentRespectsDocCountBudget(t *testing.T) {
	c := newTestController(t, Policy{MaxBufferedDocs: 2}, 1, 0)
	ts := c.ObtainAndLock(0)
	w := ts.DWPT()
	ts.Unlock()

	_, err := w.UpdateDocument(&dwpt.Document{Fields: map[string][]string{"f": {"a"}}}, nil)
	require.NoError(t, err)
	assert.Nil(t, c.DoAfterDocument(w))

	_, err = w.UpdateDocument(&dwpt.Document{Fields: map[string][]string{"f": {"b"}}}, nil)
	require.NoError(t, err)
	assert.Same(t, w, c.DoAfterDocument(w))
}

func TestWaitIfStalledUnblocksAfterSubtract(t *testing.T) {
	c := newTestController(t, Policy{}, 1, 10)
	c.flushingRAM.Store(100)

	done := make(chan error, 1)
	go func() { done <- c.WaitIfStalled(context.Background()) }()
	time.Sleep(20 * time.Millisecond) // let the goroutine reach cond.Wait()

	c.SubtractFlushedRAM(95)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitIfStalled did not unblock after RAM was subtracted")
	}
}

func TestSegmentNameForOrdinal(t *testing.T) {
	assert.Equal(t, "_0", segmentNameForOrdinal(0))
	assert.Equal(t, "_1", segmentNameForOrdinal(1))
	assert.Equal(t, "_z", segmentNameForOrdinal(35))
	assert.Equal(t, "_10", segmentNameForOrdinal(36))
}
