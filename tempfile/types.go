package tempfile

import (
	"bufio"
	"io"
)

// Writer is the sequential write side of spill storage. Each section holds
// one internally-sorted spill run. Implementations back sections with a
// single physical file (disk) or a buffer (mock).
type Writer interface {
	// Close aborts the writer and removes any data already written.
	// This is irreversible and prevents transitioning to read mode.
	io.Closer

	// Size returns the number of sections created so far, including the
	// one currently being written.
	Size() int

	// Write appends data to the current section.
	Write(p []byte) (int, error)

	// WriteString appends string data to the current section.
	WriteString(s string) (int, error)

	// Next finalizes the current section and starts the next one.
	// Returns the offset where the next section begins.
	Next() (int64, error)

	// Save finalizes all sections and returns a Reader over them.
	// A section is never readable before it has been fully written and
	// flushed, so readers cannot observe partial spill runs.
	// After Save the Writer cannot be written to.
	Save() (Reader, error)
}

// Reader is the read side of spill storage. Sections are read sequentially,
// each exactly once, during merge. Closing the reader removes the backing
// storage; Close must run on every exit path, normal or aborted.
type Reader interface {
	io.Closer

	// Size returns the number of sections available for reading.
	Size() int

	// Read returns a buffered reader positioned at the start of section i.
	// The index must be in the range [0, Size()-1].
	Read(i int) *bufio.Reader
}
