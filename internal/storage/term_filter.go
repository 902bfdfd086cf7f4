package storage

import (
	"bytes"
	"context"

	"github.com/bits-and-blooms/bloom/v3"
)

// TermFilterExt is the file extension of a segment's term bloom filter, a
// fast negative-lookup hint so a query doesn't need to open a segment's
// full term dictionary just to learn it holds no postings for a term.
// Wired the way the teacher's own datanode segment replica keeps a bloom
// filter of primary keys (github.com/bits-and-blooms/bloom/v3) for the
// analogous "might this segment contain this key" check.
const TermFilterExt = ".blm"

const termFilterFalsePositiveRate = 0.01

// BuildTermFilter constructs a bloom filter sized for terms distinct terms.
func BuildTermFilter(terms []string) *bloom.BloomFilter {
	f := bloom.NewWithEstimates(uint(len(terms))+1, termFilterFalsePositiveRate)
	for _, t := range terms {
		f.AddString(t)
	}
	return f
}

// WriteTermFilter serializes f to segmentName+TermFilterExt.
func WriteTermFilter(ctx context.Context, dir Directory, segmentName string, f *bloom.BloomFilter) error {
	out, err := dir.CreateOutput(ctx, segmentName+TermFilterExt)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		out.Close()
		return err
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadTermFilter loads a bloom filter written by WriteTermFilter.
func ReadTermFilter(ctx context.Context, dir Directory, segmentName string) (*bloom.BloomFilter, error) {
	in, err := dir.OpenInput(ctx, segmentName+TermFilterExt)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	data := make([]byte, in.Len())
	if err := in.ReadBytes(data); err != nil {
		return nil, err
	}
	f := &bloom.BloomFilter{}
	if _, err := f.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return f, nil
}
