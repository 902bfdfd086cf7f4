// Package storage implements the directory abstraction, data-stream
// primitives, codec framing and segment descriptors of spec.md §2.1-§2.4 and
// §4.3, grounded on the teacher's binlog framing in internal/storage/utils.go
// (MagicNumber + fixed header + binary.Read/Write) and its kv.BaseKV /
// miniokv abstraction used by segment_replica.go for durable blob access.
package storage

import (
	"context"
	"io"
)

// Output is an append-only, sequential writer over one named file, the
// "SequentialOutput" of spec.md §6.
type Output interface {
	io.Writer
	io.Closer

	// FilePointer returns the number of bytes written so far.
	FilePointer() int64

	// Checksum returns the running CRC-32 of every byte written so far,
	// the "checksum capture" spec.md §6 requires of create_output.
	Checksum() uint32

	// WriteByte/WriteUint32/WriteUint64/WriteString give the codec layer
	// typed primitives without reimplementing encoding/binary at each
	// call site (spec.md §2.2 "data streams").
	WriteByte(b byte) error
	WriteUint32(v uint32) error
	WriteInt32(v int32) error
	WriteUint64(v uint64) error
	WriteInt64(v int64) error
	WriteString(s string) error // length-prefixed (uint32 length + bytes)
}

// Input is a clonable, seekable random-access reader over one named file.
type Input interface {
	io.ReaderAt
	io.Closer

	// Len returns the total file length.
	Len() int64

	// ReadBytes reads exactly len(p) bytes at the input's current
	// position, advancing it.
	ReadBytes(p []byte) error

	// Seek repositions the current read offset.
	Seek(offset int64) error
	// FilePointer returns the current read offset.
	FilePointer() int64

	ReadByte() (byte, error)
	ReadUint32() (uint32, error)
	ReadInt32() (int32, error)
	ReadUint64() (uint64, error)
	ReadInt64() (int64, error)
	ReadString() (string, error)

	// Clone returns an independent Input over the same file, positioned
	// at the start, matching IndexInput's clone contract.
	Clone() (Input, error)
}

// ChecksumInput wraps Input with a running CRC-32 computed over every byte
// read so far, used by checksum_entire_file (§4.3).
type ChecksumInput interface {
	Input
	Checksum() uint32
}

// Directory is the consumed contract of spec.md §6: named byte-addressable
// files with append-only writers, random-access readers, rename, delete and
// atomic listing.
type Directory interface {
	CreateOutput(ctx context.Context, name string) (Output, error)
	OpenInput(ctx context.Context, name string) (Input, error)
	OpenChecksumInput(ctx context.Context, name string) (ChecksumInput, error)

	DeleteFile(ctx context.Context, name string) error
	RenameFile(ctx context.Context, from, to string) error
	ListAll(ctx context.Context) ([]string, error)

	Close() error
}
