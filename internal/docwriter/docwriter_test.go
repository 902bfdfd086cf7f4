package docwriter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivxsearch/ivx/internal/deletequeue"
	"github.com/ivxsearch/ivx/internal/dwpt"
	"github.com/ivxsearch/ivx/internal/storage"
)

func newTestWriter(t *testing.T, cfg Config) *Writer {
	t.Helper()
	dir, err := storage.NewFSDirectory(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	w, err := New(context.Background(), dir, cfg)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestUpdateDocumentsFlushesAndPublishes(t *testing.T) {
	w := newTestWriter(t, Config{MaxBufferedDocs: 2, MaxThreadStates: 1})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := w.UpdateDocument(ctx, &dwpt.Document{
			Fields: map[string][]string{"body": {"alpha"}},
			Stored: map[string][]byte{"id": {byte(i)}},
		}, nil)
		require.NoError(t, err)
	}

	require.NoError(t, w.FullFlush(ctx))
	segs := w.Catalog().Segments()
	require.NotEmpty(t, segs)

	var total int64
	for _, s := range segs {
		total += s.DocCount
	}
	assert.Equal(t, int64(4), total)
}

func TestUpdateDocumentAfterCloseFails(t *testing.T) {
	w := newTestWriter(t, Config{MaxThreadStates: 1})
	w.Close()
	_, err := w.UpdateDocument(context.Background(), &dwpt.Document{Fields: map[string][]string{"f": {"a"}}}, nil)
	assert.Error(t, err)
}

func TestUpdateDocumentEmitsApplyDeletesEvent(t *testing.T) {
	w := newTestWriter(t, Config{MaxThreadStates: 1})
	ctx := context.Background()

	_, err := w.UpdateDocument(ctx, &dwpt.Document{Fields: map[string][]string{"f": {"a"}}}, &deletequeue.Term{Field: "id", Bytes: []byte("x")})
	require.NoError(t, err)

	select {
	case ev := <-w.Events():
		assert.Equal(t, EventApplyDeletes, ev.Kind)
	default:
		t.Fatal("expected an ApplyDeletes event")
	}
}
