// Package common holds small shared types used across the indexing and
// search core, mirroring the teacher's internal/common grab-bag package.
package common

import "encoding/binary"

// UniqueID is an int64 identifier alias carried over from the teacher. No
// other package in this module references it.
type UniqueID = int64

// Endian is the fixed byte order for every on-disk integer the codec layer
// writes, matching the teacher's common.Endian used by segment_replica.go
// and storage/utils.go.
var Endian = binary.LittleEndian

// InvalidFieldID mirrors the teacher's sentinel for "no partition/field
// filter". No other package in this module references it.
const InvalidFieldID UniqueID = -1

// NoMoreDocs is the DocId sentinel returned by an exhausted DocIterator. It
// is the maximum representable DocId, as spec.md §3 requires.
const NoMoreDocs int32 = 1<<31 - 1
