package linesort

import (
	"context"
)

// Check scans the input once and verifies every record orders at or above
// its predecessor under the configured keys. With Config.Unique set an
// equal-key neighbor is itself a violation; otherwise duplicates are
// permitted.
//
// The scan materializes no chunks and no spill files. A nil return means
// the stream is sorted. An *OrderViolation carries the 1-based position of
// the first offending record; it is the designed detection result, not an
// engine failure. Any other error is an input or cancellation failure.
func Check(ctx context.Context, input <-chan []byte, config *Config) error {
	config, err := mergeConfig(config)
	if err != nil {
		return err
	}
	cmp := config.cmp()
	strict := config.Unique

	var prev Record
	havePrev := false
	pos := uint64(0)
	for {
		select {
		case rec, ok := <-input:
			if !ok {
				return nil
			}
			pos++
			cur := Record{Data: rec, Pos: pos}
			if havePrev {
				d := cmp.compareKeys(&prev, &cur)
				if strict && d == 0 {
					// unique checking: an equal-key neighbor is disorder
					return &OrderViolation{Position: pos}
				}
				if d == 0 && !config.Stable {
					d = cmp.compareBytes(&prev, &cur)
				}
				if d > 0 {
					return &OrderViolation{Position: pos}
				}
			}
			prev = cur
			havePrev = true
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
