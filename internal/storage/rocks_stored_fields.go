package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tecbot/gorocksdb"

	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// RocksStoredFields is an alternative document store backing the same
// random-access-by-ordinal contract as StoredFieldsReader/Writer, but keyed
// in a RocksDB column family rather than a flat .fdt file — for
// deployments that want compaction and point lookups handled by an LSM
// engine rather than per-segment flat files. Grounded on the teacher's
// internal/kv/rocksdb/rocksdb_kv.go, generalized from its string-keyed
// Load/Save/Remove surface to the byte-keyed, per-segment, ordinal-indexed
// contract stored fields need here.
type RocksStoredFields struct {
	db   *gorocksdb.DB
	ro   *gorocksdb.ReadOptions
	wo   *gorocksdb.WriteOptions
	name string
}

// OpenRocksStoredFields opens (creating if needed) a RocksDB instance
// rooted at path, one per directory root as the teacher's RocksdbKV does.
func OpenRocksStoredFields(path string) (*RocksStoredFields, error) {
	if path == "" {
		return nil, ivxerrors.IllegalArgument("rocksdb path must not be empty")
	}
	bbto := gorocksdb.NewDefaultBlockBasedTableOptions()
	bbto.SetCacheIndexAndFilterBlocks(true)
	bbto.SetPinL0FilterAndIndexBlocksInCache(true)
	bbto.SetBlockCache(gorocksdb.NewLRUCache(0))
	opts := gorocksdb.NewDefaultOptions()
	opts.SetBlockBasedTableFactory(bbto)
	opts.IncreaseParallelism(2)
	opts.SetMaxBackgroundFlushes(1)
	opts.SetCreateIfMissing(true)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		return nil, err
	}
	return &RocksStoredFields{
		db:   db,
		ro:   gorocksdb.NewDefaultReadOptions(),
		wo:   gorocksdb.NewDefaultWriteOptions(),
		name: path,
	}, nil
}

// docKey packs (segment name, doc ordinal) into a single RocksDB key so one
// column family can hold every segment's documents.
func docKey(segmentName string, docID int32) []byte {
	key := make([]byte, len(segmentName)+1+4)
	copy(key, segmentName)
	key[len(segmentName)] = 0
	binary.BigEndian.PutUint32(key[len(segmentName)+1:], uint32(docID))
	return key
}

// PutDocument stores doc's encoded form under (segmentName, docID).
func (r *RocksStoredFields) PutDocument(segmentName string, docID int32, doc *StoredDocument) error {
	var buf bytes.Buffer
	if err := encodeStoredDocument(&buf, doc); err != nil {
		return err
	}
	return r.db.Put(r.wo, docKey(segmentName, docID), buf.Bytes())
}

// Document retrieves the document stored under (segmentName, docID).
func (r *RocksStoredFields) Document(segmentName string, docID int32) (*StoredDocument, error) {
	value, err := r.db.Get(r.ro, docKey(segmentName, docID))
	if err != nil {
		return nil, err
	}
	defer value.Free()
	if value.Size() == 0 {
		return nil, ivxerrors.IllegalArgument("no stored document %s/%d", segmentName, docID)
	}
	return decodeStoredDocument(value.Data())
}

// DropSegment removes every document belonging to segmentName, e.g. after
// a merge has superseded it.
func (r *RocksStoredFields) DropSegment(segmentName string) error {
	start := docKey(segmentName, 0)
	end := make([]byte, len(segmentName)+1)
	copy(end, segmentName)
	end[len(segmentName)] = 1 // first byte value above the 0 separator
	return r.db.DeleteRange(r.wo, start, end)
}

// Close releases the RocksDB instance.
func (r *RocksStoredFields) Close() {
	r.ro.Destroy()
	r.wo.Destroy()
	r.db.Close()
}

func (r *RocksStoredFields) String() string {
	return fmt.Sprintf("RocksStoredFields(%s)", r.name)
}

// RocksStoredFieldsBackend adapts a single shared RocksStoredFields instance
// to the StoredFieldsBackend contract: one RocksDB instance backs every
// segment in the directory, keyed by segment name, rather than one file per
// segment.
type RocksStoredFieldsBackend struct {
	store *RocksStoredFields
}

// NewRocksStoredFieldsBackend opens (creating if needed) the RocksDB
// instance rooted at path.
func NewRocksStoredFieldsBackend(path string) (*RocksStoredFieldsBackend, error) {
	store, err := OpenRocksStoredFields(path)
	if err != nil {
		return nil, err
	}
	return &RocksStoredFieldsBackend{store: store}, nil
}

func (b *RocksStoredFieldsBackend) NewWriter(ctx context.Context, dir Directory, segmentName string) (SegmentFieldsWriter, error) {
	return &rocksSegmentWriter{store: b.store, segment: segmentName}, nil
}

// SegmentFiles is always empty: RocksDB keeps its own SST/WAL files outside
// any segment's Directory.
func (b *RocksStoredFieldsBackend) SegmentFiles(string) []string { return nil }

// Close releases the shared RocksDB instance.
func (b *RocksStoredFieldsBackend) Close() error {
	b.store.Close()
	return nil
}

// rocksSegmentWriter buffers a segment's documents in arrival order and
// persists them under RocksDB keys on Finish — RocksDB has no append-file
// analogue, so the ordinal index is assigned here rather than recovered
// from a file offset table the way StoredFieldsWriter does.
type rocksSegmentWriter struct {
	store   *RocksStoredFields
	segment string
	docs    []*StoredDocument
}

func (w *rocksSegmentWriter) AddDocument(doc *StoredDocument) (int32, error) {
	w.docs = append(w.docs, doc)
	return int32(len(w.docs) - 1), nil
}

func (w *rocksSegmentWriter) Finish() error {
	for i, doc := range w.docs {
		if err := w.store.PutDocument(w.segment, int32(i), doc); err != nil {
			return err
		}
	}
	return nil
}
