package linesort

import (
	"bufio"
	"context"
	"io"
)

// Records reads delimiter-terminated records from r into a channel, the
// engine's input collaborator. Records may contain arbitrary bytes other
// than the delimiter; an unterminated final record is still delivered.
// End of input is signaled by closing the record channel, distinctly from
// an empty record (delivered as an empty, non-nil slice). Read failures
// arrive on the error channel, which always receives exactly one value
// (possibly nil) before both channels close.
func Records(ctx context.Context, r io.Reader, delim byte) (<-chan []byte, <-chan error) {
	out := make(chan []byte, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errChan)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadBytes(delim)
			if len(line) > 0 {
				if line[len(line)-1] == delim {
					line = line[:len(line)-1]
				}
				select {
				case out <- line:
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			}
			if err != nil {
				if err == io.EOF {
					errChan <- nil
				} else {
					errChan <- NewIOError(err, "read input", "")
				}
				return
			}
		}
	}()
	return out, errChan
}

// WriteRecords drains the engine's output channel to w, terminating each
// record with delim. It is the output-writer collaborator for driver code.
// Writing stops early if the error channel delivers an error or the context
// is cancelled.
func WriteRecords(ctx context.Context, w io.Writer, records <-chan []byte, errChan <-chan error, delim byte) error {
	bw := bufio.NewWriter(w)
	for {
		select {
		case rec, more := <-records:
			if !more {
				if err := bw.Flush(); err != nil {
					return NewIOError(err, "flush output", "")
				}
				// the run may still have failed after its last record
				if err := <-errChan; err != nil {
					return err
				}
				return nil
			}
			if _, err := bw.Write(rec); err != nil {
				return NewIOError(err, "write output", "")
			}
			if err := bw.WriteByte(delim); err != nil {
				return NewIOError(err, "write output", "")
			}
		case err := <-errChan:
			if err != nil {
				return err
			}
			// nil error: drain the remaining records
			for rec := range records {
				if _, werr := bw.Write(rec); werr != nil {
					return NewIOError(werr, "write output", "")
				}
				if werr := bw.WriteByte(delim); werr != nil {
					return NewIOError(werr, "write output", "")
				}
			}
			if err := bw.Flush(); err != nil {
				return NewIOError(err, "flush output", "")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
