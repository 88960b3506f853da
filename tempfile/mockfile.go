package tempfile

import (
	"bufio"
	"bytes"
	"io"
)

// MockWriter provides an in-memory implementation of the Writer interface.
// It stores all data in a bytes.Buffer instead of writing to disk, which
// keeps the engine's tests free of filesystem I/O.
type MockWriter struct {
	data     *bytes.Buffer
	sections []int
}

// mockReader is the in-memory Reader over sections written by a MockWriter
type mockReader struct {
	readers []*bufio.Reader
}

// Mock creates an in-memory Writer with n bytes of initial capacity
func Mock(n int) *MockWriter {
	var m MockWriter
	m.data = bytes.NewBuffer(make([]byte, 0, n))
	return &m
}

// Size returns the number of sections, counting the one in progress
func (w *MockWriter) Size() int {
	return len(w.sections) + 1
}

// Close aborts the writer and releases the buffer
func (w *MockWriter) Close() error {
	w.data = nil
	w.sections = nil
	return nil
}

func (w *MockWriter) Write(p []byte) (int, error) {
	return w.data.Write(p)
}

func (w *MockWriter) WriteString(s string) (int, error) {
	return w.data.WriteString(s)
}

// Next finalizes the current section and starts the next one
func (w *MockWriter) Next() (int64, error) {
	pos := w.data.Len()
	w.sections = append(w.sections, pos)
	return int64(pos), nil
}

// Save finalizes all sections and returns the in-memory Reader
func (w *MockWriter) Save() (Reader, error) {
	_, err := w.Next()
	if err != nil {
		return nil, err
	}
	var r mockReader
	r.readers = make([]*bufio.Reader, len(w.sections))
	all := w.data.Bytes()
	offset := 0
	for i, end := range w.sections {
		r.readers[i] = bufio.NewReader(bytes.NewReader(all[offset:end]))
		offset = end
	}
	return &r, nil
}

func (r *mockReader) Close() error {
	r.readers = nil
	return nil
}

func (r *mockReader) Size() int {
	return len(r.readers)
}

func (r *mockReader) Read(i int) *bufio.Reader {
	if i < 0 || i >= len(r.readers) {
		panic("tempfile: read request out of range")
	}
	return r.readers[i]
}

// sanity interface checks
var (
	_ Writer    = (*MockWriter)(nil)
	_ Writer    = (*FileWriter)(nil)
	_ Reader    = (*mockReader)(nil)
	_ Reader    = (*FileReader)(nil)
	_ io.Closer = (*MockWriter)(nil)
)
