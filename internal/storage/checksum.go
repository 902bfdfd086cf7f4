package storage

import (
	"hash/crc32"

	"github.com/ivxsearch/ivx/internal/common"
	"github.com/ivxsearch/ivx/internal/ivxerrors"
)

// checksumInput decorates an Input with a running CRC-32 over every byte
// read through it, the vehicle ChecksumEntireFile uses to validate a file's
// footer without holding the whole file in memory (§4.3).
type checksumInput struct {
	Input
	crc uint32
}

func newChecksumInput(in Input) *checksumInput {
	return &checksumInput{Input: in}
}

func (c *checksumInput) ReadBytes(p []byte) error {
	if err := c.Input.ReadBytes(p); err != nil {
		return err
	}
	c.crc = crc32.Update(c.crc, crc32.IEEETable, p)
	return nil
}

// Typed reads are routed back through ReadBytes rather than the embedded
// Input's own implementations, which read bytes on a receiver this type
// never sees — embedding alone would silently leave them uncounted.
func (c *checksumInput) ReadByte() (byte, error) {
	var buf [1]byte
	if err := c.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *checksumInput) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := c.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return common.Endian.Uint32(buf[:]), nil
}

func (c *checksumInput) ReadInt32() (int32, error) {
	v, err := c.ReadUint32()
	return int32(v), err
}

func (c *checksumInput) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := c.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return common.Endian.Uint64(buf[:]), nil
}

func (c *checksumInput) ReadInt64() (int64, error) {
	v, err := c.ReadUint64()
	return int64(v), err
}

func (c *checksumInput) ReadString() (string, error) {
	n, err := c.ReadUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := c.ReadBytes(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (c *checksumInput) Checksum() uint32 { return c.crc }

// checksumEntireFileChunkSize is the buffered read size ChecksumEntireFile
// streams the file body in, per spec.md §4.3.
const checksumEntireFileChunkSize = 64 * 1024

// ChecksumEntireFile streams the first Len()-16 bytes of in through a
// CRC-32 in 64 KiB chunks (stopping 16 bytes before EOF, per §4.3), folds in
// the footer's own magic and algorithm-ID fields, validates the footer's
// structure, and compares the computed checksum against the one stored
// there. It is the one entry point production code should use to verify a
// codec-framed file end to end.
func ChecksumEntireFile(in Input) (Footer, error) {
	total := in.Len()
	if total < footerLength {
		return Footer{}, ivxerrors.Truncated("", total, footerLength)
	}

	bodyLen := total - footerLength
	cin := newChecksumInput(in)
	if err := cin.Seek(0); err != nil {
		return Footer{}, err
	}

	buf := make([]byte, checksumEntireFileChunkSize)
	var read int64
	for read < bodyLen {
		n := int64(len(buf))
		if bodyLen-read < n {
			n = bodyLen - read
		}
		if err := cin.ReadBytes(buf[:n]); err != nil {
			return Footer{}, err
		}
		read += n
	}

	footer, footerBytes, err := readFooterBytes(cin.Input, bodyLen)
	if err != nil {
		return Footer{}, err
	}
	// The checksum covers through the end of the algorithm-ID field, i.e.
	// the footer's magic (4 bytes) and algorithm ID (4 bytes), but not the
	// stored CRC itself.
	crc := crc32.Update(cin.Checksum(), crc32.IEEETable, footerBytes[:8])

	if crc != footer.CRC32 {
		return Footer{}, ivxerrors.ChecksumMismatch("", footer.CRC32, crc)
	}
	return footer, nil
}
