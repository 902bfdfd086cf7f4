package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsDir, err := NewFSDirectory(dir)
	require.NoError(t, err)
	defer fsDir.Close()

	ctx := context.Background()
	info := &SegmentInfo{
		Name:     "_0",
		ID:       NewSegmentID(),
		Codec:    "flat-stored-fields",
		Version:  SegmentInfoCurrVersion,
		DocCount: 42,
		DelCount: 2,
		Files:    []string{"_0.fdt"},
	}
	require.NoError(t, WriteSegmentInfo(ctx, fsDir, info))

	got, err := ReadSegmentInfo(ctx, fsDir, "_0")
	require.NoError(t, err)
	assert.Equal(t, info.Name, got.Name)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, info.DocCount, got.DocCount)
	assert.Equal(t, info.DelCount, got.DelCount)
	assert.Equal(t, info.Files, got.Files)
}

func TestNewSegmentIDUnique(t *testing.T) {
	a := NewSegmentID()
	b := NewSegmentID()
	assert.NotEqual(t, a, b)
}
