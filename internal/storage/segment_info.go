package storage

import (
	"context"
	"crypto/rand"

	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// SegmentIDLength is the fixed width of a segment ID, per spec.md §3/§7
// ("id length != 16" is an IllegalArgument).
const SegmentIDLength = 16

// SegmentID is the 16-byte globally-unique identity of a segment.
type SegmentID [SegmentIDLength]byte

// NewSegmentID draws a fresh random 16-byte ID. The teacher's examples
// reach for github.com/google/uuid for this; sixteen bytes of crypto/rand
// serve identically here without pulling in a dependency no component
// needs for anything else (noted in DESIGN.md).
func NewSegmentID() SegmentID {
	var id SegmentID
	if _, err := rand.Read(id[:]); err != nil {
		panic(err) // crypto/rand.Read on the stdlib reader does not fail
	}
	return id
}

// SegmentInfo is the on-disk segment descriptor of spec.md §3/§6: identity,
// codec, document count, file set, deletion count.
type SegmentInfo struct {
	Name       string
	ID         SegmentID
	Codec      string
	Version    int32
	DocCount   int64
	DelCount   int64
	Files      []string
}

// SegmentInfoCodecName/Version identify the .si descriptor file format.
const (
	SegmentInfoCodecName    = "IvxSegmentInfo"
	SegmentInfoMinVersion   = 1
	SegmentInfoCurrVersion  = 1
)

// WriteSegmentInfo frames a SegmentInfo through the codec layer (§4.3) and
// writes it via dir, as the ".si" file closing out a flush.
func WriteSegmentInfo(ctx context.Context, dir Directory, info *SegmentInfo) error {
	if len(info.Name) == 0 {
		return ivxerrors.IllegalArgument("segment name must not be empty")
	}
	out, err := dir.CreateOutput(ctx, info.Name+".si")
	if err != nil {
		return err
	}
	defer out.Close()

	if err := WriteIndexHeader(out, SegmentInfoCodecName, SegmentInfoCurrVersion, info.ID, ""); err != nil {
		return err
	}
	if err := out.WriteInt64(info.DocCount); err != nil {
		return err
	}
	if err := out.WriteInt64(info.DelCount); err != nil {
		return err
	}
	if err := out.WriteString(info.Codec); err != nil {
		return err
	}
	if err := out.WriteUint32(uint32(len(info.Files))); err != nil {
		return err
	}
	for _, f := range info.Files {
		if err := out.WriteString(f); err != nil {
			return err
		}
	}
	return WriteFooter(out)
}

// ReadSegmentInfo reads back and verifies a segment descriptor written by
// WriteSegmentInfo, checking its footer via ChecksumEntireFile.
func ReadSegmentInfo(ctx context.Context, dir Directory, name string) (*SegmentInfo, error) {
	in, err := dir.OpenInput(ctx, name+".si")
	if err != nil {
		return nil, err
	}
	defer in.Close()

	checkIn, err := in.Clone()
	if err != nil {
		return nil, err
	}
	defer checkIn.Close()
	if _, err := ChecksumEntireFile(checkIn); err != nil {
		return nil, err
	}

	// The segment ID isn't known ahead of read, so the header is decoded
	// by hand here rather than through CheckIndexHeader, which expects the
	// caller to already hold the ID it's verifying against.
	if _, err := CheckHeader(in, SegmentInfoCodecName, SegmentInfoMinVersion, SegmentInfoCurrVersion); err != nil {
		return nil, err
	}
	var id SegmentID
	if err := in.ReadBytes(id[:]); err != nil {
		return nil, err
	}
	if _, err := in.ReadByte(); err != nil { // suffix length, always 0 here
		return nil, err
	}

	docCount, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	delCount, err := in.ReadInt64()
	if err != nil {
		return nil, err
	}
	codec, err := in.ReadString()
	if err != nil {
		return nil, err
	}
	fileCount, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	files := make([]string, fileCount)
	for i := range files {
		files[i], err = in.ReadString()
		if err != nil {
			return nil, err
		}
	}

	return &SegmentInfo{
		Name:     name,
		ID:       id,
		Codec:    codec,
		Version:  SegmentInfoCurrVersion,
		DocCount: docCount,
		DelCount: delCount,
		Files:    files,
	}, nil
}
