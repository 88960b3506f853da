// Package linesort implements a bounded-memory external sort engine for
// delimiter-terminated byte records: multi-key comparison, stable
// tie-breaking, spill-to-disk chunking, and k-way merge, the component
// underlying a sort-style utility.
package linesort

import (
	"context"
	"encoding/binary"
	"errors"
	"slices"

	"github.com/linesort/linesort/queue"
	"github.com/linesort/linesort/tempfile"

	"golang.org/x/sync/errgroup"
)

// chunk is one bounded in-memory batch of records. seq reflects creation
// order and is used only for stability bookkeeping, never compared.
type chunk struct {
	data  []Record
	bytes int64
	seq   int
}

// Sorter reads records from an input chan, sorts them within the configured
// memory budget spilling oversized runs to temp storage, and merges the runs
// into a single ordered output chan.
type Sorter struct {
	config         *Config
	cmp            *comparator
	buildSortCtx   context.Context
	saveCtx        context.Context
	input          <-chan []byte
	chunkChan      chan *chunk
	saveChunkChan  chan *chunk
	mergeChunkChan chan []byte
	mergeErrChan   chan error
	tempWriter     tempfile.Writer
	tempReader     tempfile.Reader
	singleChunk    *chunk // set when the whole input fit in one chunk
}

func newSorter(input <-chan []byte, config *Config) (*Sorter, error) {
	config, err := mergeConfig(config)
	if err != nil {
		return nil, err
	}
	s := &Sorter{
		input:          input,
		config:         config,
		cmp:            config.cmp(),
		chunkChan:      make(chan *chunk, config.ChanBuffSize),
		saveChunkChan:  make(chan *chunk, config.NumWorkers*2), // buffer for workers to avoid deadlock
		mergeChunkChan: make(chan []byte, config.SortedChanBuffSize),
		mergeErrChan:   make(chan error, 1),
	}
	return s, nil
}

// New returns a Sorter over the input chan along with its output and error
// channels. Configuration problems are ConfigErrors returned here, before
// any input is read. Call Sort to start the run; sorted records arrive on
// the output channel, which is closed after the final record.
func New(input <-chan []byte, config *Config) (*Sorter, <-chan []byte, <-chan error, error) {
	s, err := newSorter(input, config)
	if err != nil {
		return nil, nil, nil, err
	}
	s.tempWriter, err = tempfile.New(s.config.TempFilesDir)
	if err != nil {
		return nil, nil, nil, NewIOError(err, "create spill file", s.config.TempFilesDir)
	}
	return s, s.mergeChunkChan, s.mergeErrChan, nil
}

// NewMock returns a Sorter whose spill storage lives in memory. Behavior is
// otherwise identical to New; useful for tests and benchmarks that should
// not touch the filesystem. n is the initial spill buffer capacity.
func NewMock(input <-chan []byte, config *Config, n int) (*Sorter, <-chan []byte, <-chan error, error) {
	s, err := newSorter(input, config)
	if err != nil {
		return nil, nil, nil, err
	}
	s.tempWriter = tempfile.Mock(n)
	return s, s.mergeChunkChan, s.mergeErrChan, nil
}

// Sort runs the pipeline: one chunk builder, NumWorkers parallel chunk
// sorters, and one save worker that owns the spill writer. It blocks until
// all chunks are sorted and spilled, then merging continues in a background
// goroutine feeding the output channel.
// NOTE: the context passed to Sort must outlive Sort returning; the merge
// goroutine keeps using it.
func (s *Sorter) Sort(ctx context.Context) {
	var buildSortErrGroup, saveErrGroup *errgroup.Group
	buildSortErrGroup, s.buildSortCtx = errgroup.WithContext(ctx)
	saveErrGroup, s.saveCtx = errgroup.WithContext(ctx)

	// start creating chunks
	buildSortErrGroup.Go(s.buildChunks)

	// sort chunks
	for i := 0; i < s.config.NumWorkers; i++ {
		buildSortErrGroup.Go(s.sortChunks)
	}

	// the save worker owns the temp writer; it also detects the
	// single-chunk case, which never touches temp storage
	saveErrGroup.Go(s.saveChunks)

	buildErr := buildSortErrGroup.Wait()

	// builder and sorters have exited; no more chunks coming
	close(s.saveChunkChan)

	// a failed save worker cancels saveCtx, which unblocks the sorters
	// above; its error is the root cause, so it wins over theirs
	saveErr := saveErrGroup.Wait()
	if saveErr != nil {
		s.abort(saveErr)
		return
	}
	if buildErr != nil {
		s.abort(buildErr)
		return
	}

	if s.tempReader == nil {
		// the run never spilled (empty input or single chunk); remove the
		// unused spill file now instead of orphaning it
		w := s.tempWriter
		s.tempWriter = nil
		if w != nil {
			if err := w.Close(); err != nil {
				s.abort(NewIOError(err, "remove unused spill file", ""))
				return
			}
		}
	}

	if s.singleChunk != nil {
		// whole input fit in memory: bypass temp storage entirely
		go s.outputSingleChunk(ctx)
		return
	}

	// if this errors, it is returned on the error chan
	go s.mergeSections(ctx)
}

// abort surfaces err and removes any spill state already created.
// No partial output has been emitted at this point: the output channel is
// not fed until every chunk is sorted and saved.
func (s *Sorter) abort(err error) {
	if s.tempReader != nil {
		if cerr := s.tempReader.Close(); cerr != nil {
			err = errors.Join(err, NewIOError(cerr, "cleanup spill file during abort", ""))
		}
	} else if s.tempWriter != nil {
		if cerr := s.tempWriter.Close(); cerr != nil {
			err = errors.Join(err, NewIOError(cerr, "cleanup spill file during abort", ""))
		}
	}
	s.mergeErrChan <- err
	close(s.mergeErrChan)
	close(s.mergeChunkChan)
}

// buildChunks reads records from the input chan into byte-budgeted chunks
// and pushes them to chunkChan. Input positions are assigned here, before
// any reordering, so stability always refers to arrival order.
func (s *Sorter) buildChunks() error {
	defer close(s.chunkChan) // if this is not called on error, causes a deadlock

	chunkLimit := s.config.chunkByteLimit()
	pos := uint64(0)
	seq := 0
	for {
		c := &chunk{seq: seq}
		for c.bytes < chunkLimit {
			select {
			case rec, ok := <-s.input:
				if !ok {
					goto inputDone
				}
				pos++
				c.data = append(c.data, Record{Data: rec, Pos: pos})
				c.bytes += int64(len(rec))
			case <-s.buildSortCtx.Done():
				return s.buildSortCtx.Err()
			}
		}
		seq++
		select {
		case s.chunkChan <- c:
		case <-s.buildSortCtx.Done():
			return s.buildSortCtx.Err()
		}
		continue

	inputDone:
		if len(c.data) > 0 {
			select {
			case s.chunkChan <- c:
			case <-s.buildSortCtx.Done():
				return s.buildSortCtx.Err()
			}
		}
		return nil
	}
}

// sortChunks is a worker that extracts key tuples and sorts chunks prior to
// save. Each worker owns its chunk exclusively while sorting, so workers
// share no mutable state.
func (s *Sorter) sortChunks() error {
	for {
		select {
		case c, more := <-s.chunkChan:
			if !more {
				return nil
			}
			// extract once per record; comparisons only read the tuples
			for i := range c.data {
				s.cmp.tuple(&c.data[i])
			}
			slices.SortFunc(c.data, func(a, b Record) int {
				return s.cmp.compareRecords(&a, &b)
			})
			select {
			case s.saveChunkChan <- c:
			case <-s.buildSortCtx.Done():
				return s.buildSortCtx.Err()
			case <-s.saveCtx.Done():
				// the save worker died; stop feeding it
				return s.saveCtx.Err()
			}
		case <-s.buildSortCtx.Done():
			return s.buildSortCtx.Err()
		}
	}
}

// saveChunks drains sorted chunks to spill storage. If the input produced
// exactly one chunk it is kept in memory instead and temp storage is never
// written.
func (s *Sorter) saveChunks() error {
	var firstChunk *chunk
	var ok bool
	select {
	case firstChunk, ok = <-s.saveChunkChan:
		if !ok {
			// no chunks at all: empty input
			return nil
		}
	case <-s.saveCtx.Done():
		return s.saveCtx.Err()
	}

	var secondChunk *chunk
	select {
	case secondChunk, ok = <-s.saveChunkChan:
		if !ok {
			// single chunk: skip spilling
			s.singleChunk = firstChunk
			return nil
		}
	case <-s.saveCtx.Done():
		return s.saveCtx.Err()
	}

	if err := s.saveChunk(firstChunk); err != nil {
		return err
	}
	if err := s.saveChunk(secondChunk); err != nil {
		return err
	}

	for {
		select {
		case c, ok := <-s.saveChunkChan:
			if !ok {
				// all chunks spilled; seal the writer for reading
				var err error
				s.tempReader, err = s.tempWriter.Save()
				if err != nil {
					return NewIOError(err, "seal spill file", "")
				}
				return nil
			}
			if err := s.saveChunk(c); err != nil {
				return err
			}
		case <-s.saveCtx.Done():
			return s.saveCtx.Err()
		}
	}
}

// saveChunk writes one sorted chunk as a spill section: uvarint-framed
// records in full comparator order. A write failure is fatal to the run,
// spilled data is never silently dropped.
func (s *Sorter) saveChunk(c *chunk) error {
	var scratch [binary.MaxVarintLen64]byte
	for i := range c.data {
		raw := c.data[i].toBytes()
		n := binary.PutUvarint(scratch[:], uint64(len(raw)))
		if _, err := s.tempWriter.Write(scratch[:n]); err != nil {
			return NewIOError(err, "write spill frame header", "")
		}
		if _, err := s.tempWriter.Write(raw); err != nil {
			return NewIOError(err, "write spill frame", "")
		}
	}
	if _, err := s.tempWriter.Next(); err != nil {
		return NewIOError(err, "finish spill section", "")
	}
	return nil
}

// outputSingleChunk feeds the output channel directly from the in-memory
// chunk, applying unique collapse if requested.
func (s *Sorter) outputSingleChunk(ctx context.Context) {
	defer close(s.mergeChunkChan)
	defer close(s.mergeErrChan)

	unique := s.config.Unique
	var prev *Record
	for i := range s.singleChunk.data {
		r := &s.singleChunk.data[i]
		if unique && prev != nil && s.cmp.compareKeys(prev, r) == 0 {
			continue
		}
		select {
		case s.mergeChunkChan <- r.Data:
			prev = r
		case <-ctx.Done():
			s.mergeErrChan <- ctx.Err()
			return
		}
	}
	s.singleChunk = nil
}

// mergeSections runs in the background performing the k-way merge over all
// spill sections. Merging is a single coordinating sequence: the priority
// queue's strict order (keys, then position) is what preserves stability,
// and it only holds if one goroutine drives the frontier.
func (s *Sorter) mergeSections(ctx context.Context) {
	defer close(s.mergeChunkChan)
	defer func() {
		if s.tempReader != nil {
			if err := s.tempReader.Close(); err != nil {
				select {
				case s.mergeErrChan <- NewIOError(err, "remove spill file", ""):
				default:
				}
			}
		}
		close(s.mergeErrChan)
	}()

	if s.tempReader == nil {
		return
	}

	pq := queue.NewPriorityQueue(func(a, b *spillCursor) int {
		return s.cmp.compareRecords(&a.head, &b.head)
	})

	for i := 0; i < s.tempReader.Size(); i++ {
		cur := &spillCursor{reader: s.tempReader.Read(i)}
		ok, err := cur.next()
		if err != nil {
			s.mergeErrChan <- err
			return
		}
		if ok {
			pq.Push(cur)
		}
	}

	unique := s.config.Unique
	var prev Record
	havePrev := false
	for pq.Len() > 0 {
		cur := pq.Peek()
		rec := cur.head
		ok, err := cur.next()
		if err != nil {
			s.mergeErrChan <- err
			return
		}
		if ok {
			pq.PeekUpdate()
		} else {
			pq.Pop()
		}

		if unique && havePrev && s.cmp.compareKeys(&prev, &rec) == 0 {
			continue
		}
		select {
		case s.mergeChunkChan <- rec.Data:
			prev = rec
			havePrev = true
		case <-ctx.Done():
			s.mergeErrChan <- ctx.Err()
			return
		}
	}
}
