// Package ivxerrors gives the indexing/search core the error taxonomy
// spec.md §7 requires, built on github.com/cockroachdb/errors so every
// failure keeps a stack trace and can be matched with errors.Is/errors.As
// the way the teacher's richer error sites do, while leaving room for the
// occasional plain fmt.Errorf the teacher itself still uses for
// caller-local, non-fatal messages.
package ivxerrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel marks. Wrap a concrete error with errors.Mark(err, ErrCorruptIndex)
// and test with errors.Is(err, ErrCorruptIndex).
var (
	ErrCorruptIndex       = errors.New("corrupt index")
	ErrAlreadyClosed      = errors.New("already closed")
	ErrIllegalArgument    = errors.New("illegal argument")
	ErrAbortingFailure    = errors.New("aborting failure")
	ErrNonAbortingFailure = errors.New("non-aborting failure")
)

// CorruptIndex builds an error from msg and args and marks it as
// CorruptIndex corruption, per §4.3/§7.
func CorruptIndex(msg string, args ...interface{}) error {
	return errors.Mark(fmt.Errorf(msg, args...), ErrCorruptIndex)
}

// Truncated reports a footer/trailer that ended before or after the
// expected 16-byte boundary, per §4.3's verification rules.
func Truncated(file string, remaining, expected int64) error {
	return errors.Mark(
		errors.Newf("truncated or extended file %q: %d bytes remain at footer, expected %d", file, remaining, expected),
		ErrCorruptIndex,
	)
}

// ChecksumMismatch reports a CRC-32 footer/body disagreement.
func ChecksumMismatch(file string, stored, computed uint32) error {
	return errors.Mark(
		errors.Newf("checksum mismatch in %q: stored=%08x computed=%08x", file, stored, computed),
		ErrCorruptIndex,
	)
}

// VersionMismatch reports a codec version outside [min, max].
func VersionMismatch(codec string, version, min, max int32) error {
	return errors.Mark(
		errors.Newf("%s: version %d outside supported range [%d, %d]", codec, version, min, max),
		ErrCorruptIndex,
	)
}

// IllegalArgument marks msg as a preventable, write-time argument error
// (codec name too long, suffix too long, wrong-sized segment ID).
func IllegalArgument(msg string, args ...interface{}) error {
	return errors.Mark(fmt.Errorf(msg, args...), ErrIllegalArgument)
}

// AlreadyClosed marks an operation attempted after Close().
func AlreadyClosed(what string) error {
	return errors.Mark(errors.Newf("%s: already closed", what), ErrAlreadyClosed)
}

// AbortingFailure marks a failure that leaves in-memory state partial and
// requires the owning DWPT to be aborted (§4.2, §7).
func AbortingFailure(cause error) error {
	return errors.Mark(errors.Wrap(cause, "aborting failure"), ErrAbortingFailure)
}

// NonAbortingFailure marks a failure confined to a single document, which
// the writer recovers from by marking that document deleted (§4.2, §7).
func NonAbortingFailure(cause error) error {
	return errors.Mark(errors.Wrap(cause, "non-aborting failure"), ErrNonAbortingFailure)
}

// Is, As and Wrap are re-exported so call sites only need this package.
var (
	Is   = errors.Is
	As   = errors.As
	Wrap = errors.Wrap
	New  = errors.New
	Newf = errors.Newf
)
