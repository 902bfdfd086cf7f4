package storage

import (
	"bytes"
	"context"

	"github.com/klauspost/compress/zstd"

	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// StoredFieldsExt is the file extension of the flat stored-fields file, the
// component spec.md §6 describes informally as "source-of-truth document
// storage retrieved at collection time". Grounded on the teacher's binlog
// payload framing (internal/storage/utils.go), with klauspost/compress/zstd
// added for the per-document payload, mirroring how the pack's other
// services (e.g. the object-storage-backed log segments) compress blobs
// before persisting them.
const StoredFieldsExt = ".fdt"

const (
	storedFieldsCodecName   = "IvxStoredFields"
	storedFieldsMinVersion  = 1
	storedFieldsCurrVersion = 1
)

// StoredDocument is a single document's retrievable field values, keyed by
// field name, opaque to the storage layer.
type StoredDocument struct {
	Fields map[string][]byte
}

// SegmentFieldsWriter is the subset of a stored-fields writer's contract a
// DWPT flush needs, satisfied by both StoredFieldsWriter and the
// RocksDB-backed alternative in rocks_stored_fields.go.
type SegmentFieldsWriter interface {
	AddDocument(doc *StoredDocument) (int32, error)
	Finish() error
}

// StoredFieldsBackend selects which engine durably stores a segment's
// retrievable field values, chosen via internal/config's
// StoredFieldsParam.Backend independently of the segment Directory backend.
type StoredFieldsBackend interface {
	NewWriter(ctx context.Context, dir Directory, segmentName string) (SegmentFieldsWriter, error)
	// SegmentFiles lists the Directory-relative files this backend wrote
	// for segmentName, for SegmentInfo.Files — empty if the backend keeps
	// its own store outside the segment's Directory (e.g. RocksDB).
	SegmentFiles(segmentName string) []string
}

// FlatStoredFieldsBackend is the default backend: one .fdt file per
// segment, written through the segment's own Directory.
type FlatStoredFieldsBackend struct{}

func (FlatStoredFieldsBackend) NewWriter(ctx context.Context, dir Directory, segmentName string) (SegmentFieldsWriter, error) {
	return NewStoredFieldsWriter(ctx, dir, segmentName)
}

func (FlatStoredFieldsBackend) SegmentFiles(segmentName string) []string {
	return []string{segmentName + StoredFieldsExt}
}

// StoredFieldsWriter appends documents to a segment's .fdt file in arrival
// order and records each one's byte offset for later random access.
type StoredFieldsWriter struct {
	out      Output
	encoder  *zstd.Encoder
	offsets  []int64
}

// NewStoredFieldsWriter opens segmentName+StoredFieldsExt for append.
func NewStoredFieldsWriter(ctx context.Context, dir Directory, segmentName string) (*StoredFieldsWriter, error) {
	out, err := dir.CreateOutput(ctx, segmentName+StoredFieldsExt)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		out.Close()
		return nil, err
	}
	if err := WriteHeader(out, storedFieldsCodecName, storedFieldsCurrVersion); err != nil {
		out.Close()
		return nil, err
	}
	return &StoredFieldsWriter{out: out, encoder: enc}, nil
}

// AddDocument serializes, compresses, and appends doc, returning the doc
// ordinal it was assigned (its position in arrival order, 0-based).
func (w *StoredFieldsWriter) AddDocument(doc *StoredDocument) (int32, error) {
	w.offsets = append(w.offsets, w.out.FilePointer())

	var buf bytes.Buffer
	if err := encodeStoredDocument(&buf, doc); err != nil {
		return 0, err
	}
	compressed := w.encoder.EncodeAll(buf.Bytes(), nil)

	if err := w.out.WriteUint32(uint32(len(compressed))); err != nil {
		return 0, err
	}
	if _, err := w.out.Write(compressed); err != nil {
		return 0, err
	}
	return int32(len(w.offsets) - 1), nil
}

// Finish writes the offset index and footer, then closes the file.
func (w *StoredFieldsWriter) Finish() error {
	indexOffset := w.out.FilePointer()
	if err := w.out.WriteUint32(uint32(len(w.offsets))); err != nil {
		return err
	}
	for _, off := range w.offsets {
		if err := w.out.WriteInt64(off); err != nil {
			return err
		}
	}
	if err := w.out.WriteInt64(indexOffset); err != nil {
		return err
	}
	if err := WriteFooter(w.out); err != nil {
		return err
	}
	w.encoder.Close()
	return w.out.Close()
}

func encodeStoredDocument(buf *bytes.Buffer, doc *StoredDocument) error {
	writeUvarint(buf, uint64(len(doc.Fields)))
	for name, value := range doc.Fields {
		writeUvarint(buf, uint64(len(name)))
		buf.WriteString(name)
		writeUvarint(buf, uint64(len(value)))
		buf.Write(value)
	}
	return nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [10]byte
	n := 0
	for v >= 0x80 {
		tmp[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	tmp[n] = byte(v)
	buf.Write(tmp[:n+1])
}

// StoredFieldsReader gives random access to documents written by a
// StoredFieldsWriter, by doc ordinal.
type StoredFieldsReader struct {
	in      Input
	decoder *zstd.Decoder
	offsets []int64
}

// NewStoredFieldsReader opens and validates segmentName+StoredFieldsExt.
func NewStoredFieldsReader(ctx context.Context, dir Directory, segmentName string) (*StoredFieldsReader, error) {
	in, err := dir.OpenInput(ctx, segmentName+StoredFieldsExt)
	if err != nil {
		return nil, err
	}

	checkIn, err := in.Clone()
	if err != nil {
		in.Close()
		return nil, err
	}
	defer checkIn.Close()
	if _, err := ChecksumEntireFile(checkIn); err != nil {
		in.Close()
		return nil, err
	}

	tailIn, err := in.Clone()
	if err != nil {
		in.Close()
		return nil, err
	}
	defer tailIn.Close()
	if err := tailIn.Seek(tailIn.Len() - footerLength - 8); err != nil {
		in.Close()
		return nil, err
	}
	indexOffset, err := tailIn.ReadInt64()
	if err != nil {
		in.Close()
		return nil, err
	}

	if err := in.Seek(indexOffset); err != nil {
		in.Close()
		return nil, err
	}
	count, err := in.ReadUint32()
	if err != nil {
		in.Close()
		return nil, err
	}
	offsets := make([]int64, count)
	for i := range offsets {
		offsets[i], err = in.ReadInt64()
		if err != nil {
			in.Close()
			return nil, err
		}
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		in.Close()
		return nil, err
	}
	return &StoredFieldsReader{in: in, decoder: dec, offsets: offsets}, nil
}

// Document retrieves and decompresses the document with the given ordinal.
func (r *StoredFieldsReader) Document(docID int32) (*StoredDocument, error) {
	if docID < 0 || int(docID) >= len(r.offsets) {
		return nil, ivxerrors.IllegalArgument("doc id %d out of range [0,%d)", docID, len(r.offsets))
	}
	if err := r.in.Seek(r.offsets[docID]); err != nil {
		return nil, err
	}
	n, err := r.in.ReadUint32()
	if err != nil {
		return nil, err
	}
	compressed := make([]byte, n)
	if err := r.in.ReadBytes(compressed); err != nil {
		return nil, err
	}
	raw, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, err
	}
	return decodeStoredDocument(raw)
}

func decodeStoredDocument(raw []byte) (*StoredDocument, error) {
	r := bytes.NewReader(raw)
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	fields := make(map[string][]byte, n)
	for i := uint64(0); i < n; i++ {
		nameLen, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := r.Read(name); err != nil {
			return nil, err
		}
		valLen, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		val := make([]byte, valLen)
		if valLen > 0 {
			if _, err := r.Read(val); err != nil {
				return nil, err
			}
		}
		fields[string(name)] = val
	}
	return &StoredDocument{Fields: fields}, nil
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	var x uint64
	var s uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
}

// Close releases the reader's underlying file handle.
func (r *StoredFieldsReader) Close() error {
	r.decoder.Close()
	return r.in.Close()
}
