// Package tempfile implements the engine's spill storage: virtual temp
// files written in series and read back during merge, then removed from the
// filesystem. All spill sections map to byte ranges of one physical file,
// so a run holds a single descriptor and cleanup is a single unlink.
package tempfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

var (
	// file IO buffer size for each section
	fileBufferSize = 1 << 16 // 64k
	// filename prefix for files put in the temp directory
	spillFilenamePrefix = fmt.Sprintf("linesort_%d_", os.Getpid())
)

// FileWriter implements Writer on a single temp file on disk
type FileWriter struct {
	file      *os.File
	bufWriter *bufio.Writer
	sections  []int64
}

// FileReader implements Reader over the sections written by a FileWriter
type FileReader struct {
	file     *os.File
	sections []int64
	readers  []*bufio.Reader
}

// New creates a FileWriter backed by a fresh temp file in dir.
// An empty dir selects a disk-backed default via GetTempDir.
func New(dir string) (*FileWriter, error) {
	var w FileWriter
	var err error
	w.file, err = os.CreateTemp(GetTempDir(dir), spillFilenamePrefix)
	if err != nil {
		return nil, err
	}
	w.bufWriter = bufio.NewWriterSize(w.file, fileBufferSize)
	w.sections = make([]int64, 0, 10)

	return &w, nil
}

// Size returns the number of sections, counting the one in progress
func (w *FileWriter) Size() int {
	// we add one because we only record a section boundary on Next
	return len(w.sections) + 1
}

// Name returns the path of the backing temp file
func (w *FileWriter) Name() string {
	return w.file.Name()
}

// Close aborts the writer, closes the file, and removes it from disk.
// Unrecoverable; used on every abort path so no spill data outlives an error.
func (w *FileWriter) Close() error {
	err := w.file.Close()
	w.sections = nil
	w.bufWriter = nil
	rmErr := os.Remove(w.file.Name())
	if err != nil {
		return err
	}
	return rmErr
}

func (w *FileWriter) Write(p []byte) (int, error) {
	return w.bufWriter.Write(p)
}

func (w *FileWriter) WriteString(s string) (int, error) {
	return w.bufWriter.WriteString(s)
}

// Next flushes and finalizes the current section
func (w *FileWriter) Next() (int64, error) {
	err := w.bufWriter.Flush()
	if err != nil {
		return 0, err
	}
	pos, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	w.sections = append(w.sections, pos)

	return pos, nil
}

// Save flushes, syncs, and closes the file, then reopens it for reading.
// The reader only ever sees fully-written, durable sections.
func (w *FileWriter) Save() (Reader, error) {
	_, err := w.Next()
	if err != nil {
		return nil, err
	}
	err = w.file.Sync()
	if err != nil {
		return nil, err
	}
	err = w.file.Close()
	if err != nil {
		return nil, err
	}
	return newFileReader(w.file.Name(), w.sections)
}

func newFileReader(filename string, sections []int64) (*FileReader, error) {
	var err error
	var r FileReader
	r.file, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	r.sections = sections
	r.readers = make([]*bufio.Reader, len(r.sections))

	offset := int64(0)
	for i, end := range r.sections {
		section := io.NewSectionReader(r.file, offset, end-offset)
		offset = end
		r.readers[i] = bufio.NewReaderSize(section, fileBufferSize)
	}

	return &r, nil
}

// Close closes and removes the backing file. Called as soon as the merge
// has drained every section, and on abort.
func (r *FileReader) Close() error {
	r.readers = nil
	err := r.file.Close()
	rmErr := os.Remove(r.file.Name())
	if err != nil {
		return err
	}
	return rmErr
}

// Size returns the number of sections available for reading
func (r *FileReader) Size() int {
	return len(r.readers)
}

// Read returns the buffered reader for section i
func (r *FileReader) Read(i int) *bufio.Reader {
	if i < 0 || i >= len(r.readers) {
		panic("tempfile: read request out of range")
	}
	return r.readers[i]
}

// Name returns the path of the backing temp file
func (r *FileReader) Name() string {
	return r.file.Name()
}
