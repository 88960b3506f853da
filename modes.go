package linesort

import (
	"context"
)

// Run is the mode controller: it selects the engine combination for the
// configured mode and starts it. The mode is fixed by the config before any
// input is read; there are no mid-run transitions.
//
//   - ModeSort, ModeSortUnique: exactly one input; chunk sort with spilling,
//     then merge (unique collapses adjacent equal keys).
//   - ModeMerge: one or more pre-sorted inputs; k-way merge only.
//   - ModeCheck: exactly one input; no output records are produced, the
//     record channel is closed immediately and the error channel delivers
//     an *OrderViolation when the input is unsorted.
//
// Sorted records arrive on the returned record channel, which closes after
// the final record. The error channel is buffered and closes when the run
// finishes. Setup problems are returned immediately as ConfigErrors and the
// run never starts.
func Run(ctx context.Context, config *Config, inputs ...<-chan []byte) (<-chan []byte, <-chan error, error) {
	merged, err := mergeConfig(config)
	if err != nil {
		return nil, nil, err
	}

	switch merged.Mode {
	case ModeSort, ModeSortUnique:
		if len(inputs) != 1 {
			return nil, nil, NewConfigError("inputs", len(inputs), "sort takes exactly one input")
		}
		s, out, errChan, err := New(inputs[0], merged)
		if err != nil {
			return nil, nil, err
		}
		go s.Sort(ctx)
		return out, errChan, nil

	case ModeMerge:
		m, out, errChan, err := NewMerge(inputs, merged)
		if err != nil {
			return nil, nil, err
		}
		m.Merge(ctx)
		return out, errChan, nil

	case ModeCheck:
		if len(inputs) != 1 {
			return nil, nil, NewConfigError("inputs", len(inputs), "check takes exactly one input")
		}
		out := make(chan []byte)
		close(out)
		errChan := make(chan error, 1)
		go func() {
			defer close(errChan)
			if err := Check(ctx, inputs[0], merged); err != nil {
				errChan <- err
			}
		}()
		return out, errChan, nil
	}
	// mergeConfig validated the mode
	return nil, nil, NewConfigError("Mode", int(merged.Mode), "unknown mode")
}
