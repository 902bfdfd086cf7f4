package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ivxsearch/ivx/internal/common"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// CodecMagic is the big-endian-valued magic every codec header opens with,
// bit-exact per spec.md §4.3.
const CodecMagic int32 = 0x3FD76C17

// footerMagic is CodecMagic's bitwise complement, written as the first
// field of every footer.
const footerMagic int32 = ^CodecMagic

// footerLength is the fixed 16-byte size of every footer: magic (4) +
// algorithm ID (4) + CRC-32 stored as an int64 (8).
const footerLength int64 = 16

const maxCodecNameLength = 128
const maxSuffixLength = 256

// Footer is the decoded trailer of a codec-framed file.
type Footer struct {
	AlgorithmID int32
	CRC32       uint32
}

// WriteHeader writes a plain (non-indexed) codec header: magic, codec name,
// version. Used for files with no per-segment identity.
func WriteHeader(out Output, codecName string, version int32) error {
	if len(codecName) >= maxCodecNameLength {
		return ivxerrors.IllegalArgument("codec name %q length %d >= %d", codecName, len(codecName), maxCodecNameLength)
	}
	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], uint32(CodecMagic))
	if _, err := out.Write(magic[:]); err != nil {
		return err
	}
	if err := out.WriteString(codecName); err != nil {
		return err
	}
	return out.WriteInt32(version)
}

// WriteIndexHeader writes a codec header plus the 16-byte segment ID and a
// short textual suffix — the variant spec.md §4.3 calls write_index_header.
func WriteIndexHeader(out Output, codecName string, version int32, segmentID [16]byte, suffix string) error {
	if len(suffix) >= maxSuffixLength {
		return ivxerrors.IllegalArgument("suffix %q length %d >= %d", suffix, len(suffix), maxSuffixLength)
	}
	if err := WriteHeader(out, codecName, version); err != nil {
		return err
	}
	if _, err := out.Write(segmentID[:]); err != nil {
		return err
	}
	if err := out.WriteByte(byte(len(suffix))); err != nil {
		return err
	}
	_, err := out.Write([]byte(suffix))
	return err
}

// CheckHeader verifies a plain header and returns its version, failing
// CorruptIndex on any magic/name/version-range mismatch (§4.3).
func CheckHeader(in Input, codecName string, minVersion, maxVersion int32) (int32, error) {
	var magicBuf [4]byte
	if err := in.ReadBytes(magicBuf[:]); err != nil {
		return 0, err
	}
	magic := int32(binary.BigEndian.Uint32(magicBuf[:]))
	if magic != CodecMagic {
		return 0, ivxerrors.CorruptIndex("bad codec magic: got %#x, want %#x", magic, CodecMagic)
	}
	name, err := in.ReadString()
	if err != nil {
		return 0, err
	}
	if name != codecName {
		return 0, ivxerrors.CorruptIndex("codec mismatch: got %q, want %q", name, codecName)
	}
	version, err := in.ReadInt32()
	if err != nil {
		return 0, err
	}
	if version < minVersion || version > maxVersion {
		return 0, ivxerrors.VersionMismatch(codecName, version, minVersion, maxVersion)
	}
	return version, nil
}

// CheckIndexHeader verifies an indexed header (adding segment-ID and suffix
// checks) and returns the version and suffix.
func CheckIndexHeader(in Input, codecName string, minVersion, maxVersion int32, segmentID [16]byte, expectedSuffix string) (int32, string, error) {
	version, err := CheckHeader(in, codecName, minVersion, maxVersion)
	if err != nil {
		return 0, "", err
	}
	var gotID [16]byte
	if err := in.ReadBytes(gotID[:]); err != nil {
		return 0, "", err
	}
	if gotID != segmentID {
		return 0, "", ivxerrors.CorruptIndex("segment id mismatch: got %x, want %x", gotID, segmentID)
	}
	suffixLen, err := in.ReadByte()
	if err != nil {
		return 0, "", err
	}
	buf := make([]byte, suffixLen)
	if err := in.ReadBytes(buf); err != nil {
		return 0, "", err
	}
	if string(buf) != expectedSuffix {
		return 0, "", ivxerrors.CorruptIndex("suffix mismatch: got %q, want %q", string(buf), expectedSuffix)
	}
	return version, string(buf), nil
}

// WriteFooter appends the 16-byte footer to out. It must be called last:
// the stored CRC-32 is out.Checksum(), the running checksum of every byte
// written to out so far including the footer's own magic and algorithm-ID
// fields, matching spec.md §4.3's "CRC-32 of every byte from file offset 0
// through the end of the algorithm-ID field".
func WriteFooter(out Output) error {
	if err := out.WriteInt32(footerMagic); err != nil {
		return err
	}
	if err := out.WriteInt32(0); err != nil { // algorithm ID, only value defined
		return err
	}
	crc := out.Checksum()
	return out.WriteInt64(int64(crc))
}

// CheckFooter validates the structural shape of the footer at the end of
// in (magic, algorithm ID, trailer position, high CRC bits) without
// recomputing the body checksum — that full pass is ChecksumEntireFile's
// job. It is the fast, allocation-free check used once a caller already
// trusts the body (e.g. immediately after writing it).
func CheckFooter(in Input) (Footer, error) {
	footer, _, err := readFooterBytes(in, in.Len()-footerLength)
	return footer, err
}

// readFooterBytes seeks to footerOffset, decodes the footer found there,
// and also returns the raw magic+algorithmID bytes (the first 8 of the 16
// footer bytes) so ChecksumEntireFile can fold them into its running CRC
// without re-deriving their encoding.
func readFooterBytes(in Input, footerOffset int64) (Footer, [8]byte, error) {
	var raw [8]byte
	remaining := in.Len() - footerOffset
	if remaining != footerLength {
		return Footer{}, raw, ivxerrors.Truncated(fmt.Sprintf("offset=%d", footerOffset), remaining, footerLength)
	}
	if err := in.Seek(footerOffset); err != nil {
		return Footer{}, raw, err
	}
	magic, err := in.ReadInt32()
	if err != nil {
		return Footer{}, raw, err
	}
	if magic != footerMagic {
		return Footer{}, raw, ivxerrors.CorruptIndex("bad footer magic: got %#x, want %#x", magic, footerMagic)
	}
	algoID, err := in.ReadInt32()
	if err != nil {
		return Footer{}, raw, err
	}
	if algoID != 0 {
		return Footer{}, raw, ivxerrors.CorruptIndex("unknown footer algorithm id %d", algoID)
	}
	crc64, err := in.ReadInt64()
	if err != nil {
		return Footer{}, raw, err
	}
	if crc64>>32 != 0 {
		return Footer{}, raw, ivxerrors.CorruptIndex("footer CRC has non-zero high bits: %#x", crc64)
	}
	common.Endian.PutUint32(raw[0:4], uint32(magic))
	common.Endian.PutUint32(raw[4:8], uint32(algoID))
	return Footer{AlgorithmID: algoID, CRC32: uint32(crc64)}, raw, nil
}
