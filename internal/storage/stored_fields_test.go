package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredFieldsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsDir, err := NewFSDirectory(dir)
	require.NoError(t, err)
	defer fsDir.Close()

	ctx := context.Background()
	w, err := NewStoredFieldsWriter(ctx, fsDir, "_0")
	require.NoError(t, err)

	docs := []*StoredDocument{
		{Fields: map[string][]byte{"title": []byte("hello world")}},
		{Fields: map[string][]byte{"title": []byte("second doc"), "body": []byte("more text")}},
		{Fields: map[string][]byte{}},
	}
	for i, d := range docs {
		ord, err := w.AddDocument(d)
		require.NoError(t, err)
		assert.Equal(t, int32(i), ord)
	}
	require.NoError(t, w.Finish())

	r, err := NewStoredFieldsReader(ctx, fsDir, "_0")
	require.NoError(t, err)
	defer r.Close()

	for i, want := range docs {
		got, err := r.Document(int32(i))
		require.NoError(t, err)
		assert.Equal(t, want.Fields, got.Fields)
	}

	_, err = r.Document(int32(len(docs)))
	assert.Error(t, err)
}

func TestTermFilterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsDir, err := NewFSDirectory(dir)
	require.NoError(t, err)
	defer fsDir.Close()

	ctx := context.Background()
	terms := []string{"alpha", "bravo", "charlie"}
	f := BuildTermFilter(terms)
	require.NoError(t, WriteTermFilter(ctx, fsDir, "_0", f))

	loaded, err := ReadTermFilter(ctx, fsDir, "_0")
	require.NoError(t, err)
	for _, term := range terms {
		assert.True(t, loaded.TestString(term))
	}
	assert.False(t, loaded.TestString("definitely-not-present-xyz"))
}
