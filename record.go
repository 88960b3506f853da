package linesort

import (
	"encoding/binary"
	"errors"
)

// Record is one delimiter-terminated input line. It carries the original
// 1-based input position for stable tie-breaking and, once extracted, the
// cached key tuple for the run's KeySpec. A Record is owned exclusively by
// whichever stage currently holds it; stages never share one mutably.
type Record struct {
	// Data is the record's bytes, record delimiter excluded
	Data []byte
	// Pos is the record's 1-based position in the original input
	Pos uint64

	keys []keyValue
}

var errCorruptFrame = errors.New("corrupt spill frame")

// toBytes serializes the record for spill storage: uvarint position
// followed by the raw record bytes. The key tuple is not persisted, it is
// re-extracted when the record is read back during merge.
func (r Record) toBytes() []byte {
	buf := make([]byte, binary.MaxVarintLen64+len(r.Data))
	n := binary.PutUvarint(buf, r.Pos)
	n += copy(buf[n:], r.Data)
	return buf[:n]
}

// recordFromBytes is the inverse of toBytes. The returned Record aliases b,
// which must not be reused by the caller.
func recordFromBytes(b []byte) (Record, error) {
	pos, n := binary.Uvarint(b)
	if n <= 0 {
		return Record{}, errCorruptFrame
	}
	return Record{Data: b[n:], Pos: pos}, nil
}
