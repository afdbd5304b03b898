// Package segment implements the append-only segment file I/O described in
// spec.md section 4.1: a Writer that always appends and a cloneable Reader
// that supports both random reads by offset and a restartable sequential
// iterator. Segment file names are zero-padded numeric stems with a .log
// suffix (spec.md section 6), grounded on the naming scheme in
// _examples/gtarraga-kv-store/v4_indexed/segment.go, adapted to the
// CommandPosition addressing scheme from _examples/original_source's
// engine/kvstore/kvstore.rs.
package segment

import (
	"fmt"
	"path/filepath"
)

// ID identifies a segment file. IDs are allocated cyclically modulo MaxID
// (spec.md section 9) so long-running instances can reuse IDs freed by
// compaction.
type ID uint32

// MaxID bounds the cyclic segment ID counter at 2^16, per spec.md section 9.
const MaxID ID = 1 << 16

// Position addresses a single record: the segment that holds it and the
// byte offset of its first byte. Positions are immutable once assigned.
type Position struct {
	SegmentID ID
	Offset    uint64
}

// FileName returns the on-disk file name for segment id: a 5-digit
// zero-padded stem with a .log suffix.
func FileName(id ID) string {
	return fmt.Sprintf("%05d.log", id)
}

// Path joins dataDir with the segment's file name.
func Path(dataDir string, id ID) string {
	return filepath.Join(dataDir, FileName(id))
}
