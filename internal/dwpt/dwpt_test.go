package dwpt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivxsearch/ivx/internal/deletequeue"
	"github.com/ivxsearch/ivx/internal/storage"
)

func newTestDWPT(t *testing.T) (*DWPT, storage.Directory) {
	t.Helper()
	dir, err := storage.NewFSDirectory(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	queue := deletequeue.NewQueue()
	return New(dir, "_0", queue, nil), dir
}

func TestUpdateDocumentsThenFlush(t *testing.T) {
	w, dir := newTestDWPT(t)
	ctx := context.Background()

	const n = 1000
	docs := make([]*Document, n)
	for i := 0; i < n; i++ {
		docs[i] = &Document{
			Fields: map[string][]string{"body": {"alpha", "beta"}},
			Stored: map[string][]byte{"id": []byte{byte(i), byte(i >> 8)}},
		}
	}
	seq, err := w.UpdateDocuments(docs, nil)
	require.NoError(t, err)
	assert.Positive(t, seq)
	assert.Equal(t, n, w.NumDocsInRAM())

	state, err := w.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), state.Info.DocCount)
	assert.Equal(t, int64(0), state.Info.DelCount)
	assert.Contains(t, state.Info.Files, "_0"+storage.StoredFieldsExt)
	assert.Contains(t, state.Info.Files, "_0"+storage.TermFilterExt)
	assert.Equal(t, 0, w.NumDocsInRAM())

	reader, err := storage.NewStoredFieldsReader(ctx, dir, "_0")
	require.NoError(t, err)
	defer reader.Close()
	doc, err := reader.Document(0)
	require.NoError(t, err)
	assert.Equal(t, docs[0].Stored, doc.Fields)
}

func TestUpdateDocumentBindsDeleteTermAtomically(t *testing.T) {
	w, _ := newTestDWPT(t)
	term := &deletequeue.Term{Field: "id", Bytes: []byte("doc-0")}
	seq, err := w.UpdateDocument(&Document{Fields: map[string][]string{"body": {"x"}}}, term)
	require.NoError(t, err)
	assert.Positive(t, seq)
}

func TestAbortClearsState(t *testing.T) {
	w, _ := newTestDWPT(t)
	_, err := w.UpdateDocument(&Document{Fields: map[string][]string{"body": {"x"}}}, nil)
	require.NoError(t, err)
	w.Abort()
	assert.Equal(t, StateAborted, w.State())
	assert.Equal(t, 0, w.NumDocsInRAM())

	_, err = w.UpdateDocument(&Document{Fields: map[string][]string{"body": {"y"}}}, nil)
	assert.Error(t, err)
}

func TestPostingsReflectIndexedTerms(t *testing.T) {
	w, _ := newTestDWPT(t)
	_, err := w.UpdateDocuments([]*Document{
		{Fields: map[string][]string{"body": {"alpha"}}},
		{Fields: map[string][]string{"body": {"alpha", "beta"}}},
	}, nil)
	require.NoError(t, err)

	postings := w.Postings("body\x00alpha")
	assert.ElementsMatch(t, []int32{0, 1}, postings)
}
