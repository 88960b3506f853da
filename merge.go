package linesort

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"

	"github.com/linesort/linesort/queue"
)

// spillCursor walks one spill section sequentially. It produces a finite,
// non-restartable sequence of records: head is the section's current front
// record until next reports the section exhausted.
type spillCursor struct {
	head   Record
	reader *bufio.Reader
}

// next advances the cursor, replacing head with the following record.
// It returns false with a nil error once the section is exhausted.
// Frames are length-prefixed, so short reads are retried by io.ReadFull
// until the full record or a real error.
func (c *spillCursor) next() (bool, error) {
	n, err := binary.ReadUvarint(c.reader)
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, NewIOError(err, "read spill frame header", "")
	}
	buf := make([]byte, int(n))
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return false, NewIOError(err, "read spill frame", "")
	}
	rec, err := recordFromBytes(buf)
	if err != nil {
		return false, NewIOError(err, "decode spill frame", "")
	}
	c.head = rec
	return true, nil
}

// streamCursor adapts a pre-sorted input channel to the merge frontier.
// seq is the source's position in the input list; among sources whose heads
// compare equal the lower seq is emitted first, preserving stability across
// merged inputs.
type streamCursor struct {
	head Record
	ch   <-chan []byte
	seq  int
	pos  uint64 // per-source record counter
}

func (c *streamCursor) next() bool {
	rec, ok := <-c.ch
	if !ok {
		return false
	}
	c.pos++
	c.head = Record{Data: rec, Pos: c.pos}
	return true
}

// Merger merges already-sorted sources into one globally ordered stream
// without sorting or spilling anything.
type Merger struct {
	config  *Config
	cmp     *comparator
	inputs  []<-chan []byte
	outChan chan []byte
	errChan chan error
}

// NewMerge returns a Merger over pre-sorted input channels along with its
// output and error channels. Each input must already be ordered under the
// same key spec; Merge neither sorts nor spills. Call Merge to start.
func NewMerge(inputs []<-chan []byte, config *Config) (*Merger, <-chan []byte, <-chan error, error) {
	config, err := mergeConfig(config)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(inputs) == 0 {
		return nil, nil, nil, NewConfigError("inputs", 0, "merge requires at least one pre-sorted input")
	}
	m := &Merger{
		config:  config,
		cmp:     config.cmp(),
		inputs:  inputs,
		outChan: make(chan []byte, config.SortedChanBuffSize),
		errChan: make(chan error, 1),
	}
	return m, m.outChan, m.errChan, nil
}

// compareCursors orders the merge frontier: the comparator's key rules and
// record fallback first, then source order. Positions are per-source here,
// so cross-source ties fall to the source sequence number instead.
func (m *Merger) compareCursors(a, b *streamCursor) int {
	if d := m.cmp.compareKeys(&a.head, &b.head); d != 0 {
		return d
	}
	if !m.config.Stable {
		if d := m.cmp.compareBytes(&a.head, &b.head); d != 0 {
			return d
		}
	}
	if a.seq != b.seq {
		if a.seq < b.seq {
			return -1
		}
		return 1
	}
	return 0
}

// Merge drives the k-way merge in the calling goroutine's background,
// feeding the output channel until every source is exhausted.
func (m *Merger) Merge(ctx context.Context) {
	go m.run(ctx)
}

func (m *Merger) run(ctx context.Context) {
	defer close(m.outChan)
	defer close(m.errChan)

	pq := queue.NewPriorityQueue(m.compareCursors)
	for i, ch := range m.inputs {
		cur := &streamCursor{ch: ch, seq: i}
		if cur.next() {
			pq.Push(cur)
		}
	}

	unique := m.config.Unique
	var prev Record
	havePrev := false
	for pq.Len() > 0 {
		cur := pq.Peek()
		rec := cur.head
		if cur.next() {
			pq.PeekUpdate()
		} else {
			pq.Pop()
		}

		if unique && havePrev && m.cmp.compareKeys(&prev, &rec) == 0 {
			continue
		}
		select {
		case m.outChan <- rec.Data:
			prev = rec
			havePrev = true
		case <-ctx.Done():
			m.errChan <- ctx.Err()
			return
		}
	}
}
