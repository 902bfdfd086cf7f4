package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogPublishCommitReload(t *testing.T) {
	dir := t.TempDir()
	fsDir, err := NewFSDirectory(dir)
	require.NoError(t, err)

	ctx := context.Background()
	cat, err := NewCatalog(ctx, fsDir)
	require.NoError(t, err)
	assert.Empty(t, cat.Segments())

	info := &SegmentInfo{Name: "_0", ID: NewSegmentID(), Codec: "flat-stored-fields", DocCount: 3}
	require.NoError(t, WriteSegmentInfo(ctx, fsDir, info))
	cat.Publish(info)
	require.NoError(t, cat.Commit(ctx))
	require.NoError(t, fsDir.Close())

	reopened, err := NewFSDirectory(dir)
	require.NoError(t, err)
	defer reopened.Close()
	cat2, err := NewCatalog(ctx, reopened)
	require.NoError(t, err)
	segs := cat2.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, "_0", segs[0].Name)
	assert.Equal(t, int64(3), segs[0].DocCount)
}

func TestCatalogDrop(t *testing.T) {
	dir := t.TempDir()
	fsDir, err := NewFSDirectory(dir)
	require.NoError(t, err)
	defer fsDir.Close()

	ctx := context.Background()
	cat, err := NewCatalog(ctx, fsDir)
	require.NoError(t, err)

	info := &SegmentInfo{Name: "_0", ID: NewSegmentID()}
	require.NoError(t, WriteSegmentInfo(ctx, fsDir, info))
	cat.Publish(info)
	assert.Len(t, cat.Segments(), 1)

	cat.Drop("_0")
	assert.Empty(t, cat.Segments())
}
