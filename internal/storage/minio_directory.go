package storage

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ivxsearch/ivx/internal/common"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// MinioDirectory is a Directory backed by an S3-compatible object store,
// the teacher's chosen blob backend (github.com/minio/minio-go/v7 appears
// directly in its go.mod for exactly this kind of durable segment storage).
// Object names are flattened under a bucket prefix; since object stores
// have no in-place append, CreateOutput buffers a segment's output in
// memory and uploads it whole on Close — acceptable here since segments
// are written once, sequentially, by a single DWPT flush (spec.md §4.2).
type MinioDirectory struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioDirectory dials endpoint and scopes all operations under
// bucket/prefix, creating the bucket if it does not already exist.
func NewMinioDirectory(ctx context.Context, endpoint, accessKey, secretKey, bucket, prefix string, useSSL bool) (*MinioDirectory, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinioDirectory{client: client, bucket: bucket, prefix: prefix}, nil
}

func (d *MinioDirectory) key(name string) string { return path.Join(d.prefix, name) }

func (d *MinioDirectory) CreateOutput(ctx context.Context, name string) (Output, error) {
	return &minioOutput{ctx: ctx, dir: d, name: name}, nil
}

func (d *MinioDirectory) OpenInput(ctx context.Context, name string) (Input, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, d.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, err
	}
	data := make([]byte, stat.Size)
	if _, err := io.ReadFull(obj, data); err != nil && err != io.EOF {
		obj.Close()
		return nil, err
	}
	obj.Close()
	return &memInput{data: data}, nil
}

func (d *MinioDirectory) OpenChecksumInput(ctx context.Context, name string) (ChecksumInput, error) {
	in, err := d.OpenInput(ctx, name)
	if err != nil {
		return nil, err
	}
	return newChecksumInput(in), nil
}

func (d *MinioDirectory) DeleteFile(ctx context.Context, name string) error {
	return d.client.RemoveObject(ctx, d.bucket, d.key(name), minio.RemoveObjectOptions{})
}

func (d *MinioDirectory) RenameFile(ctx context.Context, from, to string) error {
	_, err := d.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: d.bucket, Object: d.key(to)},
		minio.CopySrcOptions{Bucket: d.bucket, Object: d.key(from)},
	)
	if err != nil {
		return err
	}
	return d.DeleteFile(ctx, from)
}

func (d *MinioDirectory) ListAll(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{Prefix: d.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, path.Base(obj.Key))
	}
	return names, nil
}

func (d *MinioDirectory) Close() error { return nil }

// minioOutput buffers writes in memory, uploading the whole object on
// Close — see MinioDirectory's doc comment for why that's safe here.
type minioOutput struct {
	ctx  context.Context
	dir  *MinioDirectory
	name string
	buf  bytes.Buffer
	crc  uint32
}

func (o *minioOutput) Write(p []byte) (int, error) {
	n, err := o.buf.Write(p)
	o.crc = crc32.Update(o.crc, crc32.IEEETable, p[:n])
	return n, err
}

func (o *minioOutput) Close() error {
	_, err := o.dir.client.PutObject(o.ctx, o.dir.bucket, o.dir.key(o.name), bytes.NewReader(o.buf.Bytes()), int64(o.buf.Len()), minio.PutObjectOptions{})
	return err
}

func (o *minioOutput) FilePointer() int64 { return int64(o.buf.Len()) }
func (o *minioOutput) Checksum() uint32   { return o.crc }

func (o *minioOutput) WriteByte(b byte) error { _, err := o.Write([]byte{b}); return err }

func (o *minioOutput) WriteUint32(v uint32) error {
	var b [4]byte
	common.Endian.PutUint32(b[:], v)
	_, err := o.Write(b[:])
	return err
}
func (o *minioOutput) WriteInt32(v int32) error { return o.WriteUint32(uint32(v)) }

func (o *minioOutput) WriteUint64(v uint64) error {
	var b [8]byte
	common.Endian.PutUint64(b[:], v)
	_, err := o.Write(b[:])
	return err
}
func (o *minioOutput) WriteInt64(v int64) error { return o.WriteUint64(uint64(v)) }

func (o *minioOutput) WriteString(s string) error {
	if err := o.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := o.Write([]byte(s))
	return err
}

// memInput is a fully-buffered Input, the random-access view OpenInput
// gives over an object downloaded in one shot.
type memInput struct {
	data []byte
	pos  int64
}

func (in *memInput) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(in.data)) {
		return 0, io.EOF
	}
	n := copy(p, in.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (in *memInput) Close() error       { return nil }
func (in *memInput) Len() int64         { return int64(len(in.data)) }
func (in *memInput) FilePointer() int64 { return in.pos }
func (in *memInput) Seek(offset int64) error {
	in.pos = offset
	return nil
}

func (in *memInput) ReadBytes(p []byte) error {
	if in.pos+int64(len(p)) > int64(len(in.data)) {
		return ivxerrors.Truncated("", int64(len(in.data))-in.pos, int64(len(p)))
	}
	copy(p, in.data[in.pos:in.pos+int64(len(p))])
	in.pos += int64(len(p))
	return nil
}

func (in *memInput) ReadByte() (byte, error) {
	var b [1]byte
	if err := in.ReadBytes(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (in *memInput) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := in.ReadBytes(b[:]); err != nil {
		return 0, err
	}
	return common.Endian.Uint32(b[:]), nil
}
func (in *memInput) ReadInt32() (int32, error) {
	v, err := in.ReadUint32()
	return int32(v), err
}

func (in *memInput) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := in.ReadBytes(b[:]); err != nil {
		return 0, err
	}
	return common.Endian.Uint64(b[:]), nil
}
func (in *memInput) ReadInt64() (int64, error) {
	v, err := in.ReadUint64()
	return int64(v), err
}

func (in *memInput) ReadString() (string, error) {
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

func (in *memInput) Clone() (Input, error) {
	return &memInput{data: in.data}, nil
}
