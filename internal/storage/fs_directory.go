package storage

import (
	"context"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ivxsearch/ivx/internal/common"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// FSDirectory is a Directory backed by a plain OS directory. A single
// advisory write.lock file, taken with github.com/gofrs/flock, enforces the
// single-writer invariant implied by spec.md §5 — the low-level mmap/locking
// mechanics beyond that are explicitly out of scope (spec.md §1).
type FSDirectory struct {
	root string

	lockMu sync.Mutex
	lock   *flock.Flock
}

// NewFSDirectory opens (creating if needed) root as a segment directory and
// takes its write lock.
func NewFSDirectory(root string) (*FSDirectory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	lk := flock.New(filepath.Join(root, "write.lock"))
	locked, err := lk.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ivxerrors.New("directory is locked by another writer")
	}
	return &FSDirectory{root: root, lock: lk}, nil
}

func (d *FSDirectory) path(name string) string { return filepath.Join(d.root, name) }

func (d *FSDirectory) CreateOutput(_ context.Context, name string) (Output, error) {
	f, err := os.OpenFile(d.path(name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &fsOutput{f: f}, nil
}

func (d *FSDirectory) OpenInput(_ context.Context, name string) (Input, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fsInput{f: f, path: d.path(name), size: fi.Size()}, nil
}

func (d *FSDirectory) OpenChecksumInput(ctx context.Context, name string) (ChecksumInput, error) {
	in, err := d.OpenInput(ctx, name)
	if err != nil {
		return nil, err
	}
	return newChecksumInput(in), nil
}

func (d *FSDirectory) DeleteFile(_ context.Context, name string) error {
	return os.Remove(d.path(name))
}

func (d *FSDirectory) RenameFile(_ context.Context, from, to string) error {
	return os.Rename(d.path(from), d.path(to))
}

func (d *FSDirectory) ListAll(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == "write.lock" {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (d *FSDirectory) Close() error {
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	return d.lock.Unlock()
}

// fsOutput implements Output over an *os.File, tracking a running CRC-32 of
// every byte written so WriteFooter can pull the whole-file checksum
// without a second pass.
type fsOutput struct {
	f   *os.File
	pos int64
	crc uint32
}

func (o *fsOutput) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	o.pos += int64(n)
	o.crc = crc32.Update(o.crc, crc32.IEEETable, p[:n])
	return n, err
}

func (o *fsOutput) Close() error           { return o.f.Close() }
func (o *fsOutput) FilePointer() int64     { return o.pos }
func (o *fsOutput) Checksum() uint32       { return o.crc }
func (o *fsOutput) WriteByte(b byte) error { _, err := o.Write([]byte{b}); return err }

func (o *fsOutput) WriteUint32(v uint32) error {
	var buf [4]byte
	common.Endian.PutUint32(buf[:], v)
	_, err := o.Write(buf[:])
	return err
}

func (o *fsOutput) WriteInt32(v int32) error { return o.WriteUint32(uint32(v)) }

func (o *fsOutput) WriteUint64(v uint64) error {
	var buf [8]byte
	common.Endian.PutUint64(buf[:], v)
	_, err := o.Write(buf[:])
	return err
}

func (o *fsOutput) WriteInt64(v int64) error { return o.WriteUint64(uint64(v)) }

func (o *fsOutput) WriteString(s string) error {
	if err := o.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := o.Write([]byte(s))
	return err
}

// fsInput implements Input over an *os.File opened read-only.
type fsInput struct {
	f    *os.File
	path string
	pos  int64
	size int64
}

func (in *fsInput) ReadAt(p []byte, off int64) (int, error) { return in.f.ReadAt(p, off) }
func (in *fsInput) Close() error                            { return in.f.Close() }
func (in *fsInput) Len() int64                              { return in.size }
func (in *fsInput) FilePointer() int64                      { return in.pos }

func (in *fsInput) Seek(offset int64) error {
	in.pos = offset
	return nil
}

func (in *fsInput) ReadBytes(p []byte) error {
	n, err := in.f.ReadAt(p, in.pos)
	in.pos += int64(n)
	return err
}

func (in *fsInput) ReadByte() (byte, error) {
	var buf [1]byte
	if err := in.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (in *fsInput) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := in.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return common.Endian.Uint32(buf[:]), nil
}

func (in *fsInput) ReadInt32() (int32, error) {
	v, err := in.ReadUint32()
	return int32(v), err
}

func (in *fsInput) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := in.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return common.Endian.Uint64(buf[:]), nil
}

func (in *fsInput) ReadInt64() (int64, error) {
	v, err := in.ReadUint64()
	return int64(v), err
}

func (in *fsInput) ReadString() (string, error) {
	n, err := in.ReadUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := in.ReadBytes(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (in *fsInput) Clone() (Input, error) {
	f, err := os.Open(in.path)
	if err != nil {
		return nil, err
	}
	return &fsInput{f: f, path: in.path, size: in.size}, nil
}
