package linesort

import (
	"fmt"
	"os"
)

// Mode selects the engine's behavior for a run. It is fixed before any
// input is read; there are no mid-run transitions.
type Mode int

const (
	// ModeSort sorts the input
	ModeSort Mode = iota
	// ModeSortUnique sorts the input and collapses adjacent equal keys
	ModeSortUnique
	// ModeMerge merges pre-sorted inputs without sorting or spilling
	ModeMerge
	// ModeCheck verifies the input is sorted without producing output
	ModeCheck
)

func (m Mode) String() string {
	switch m {
	case ModeSort:
		return "sort"
	case ModeSortUnique:
		return "sort-unique"
	case ModeMerge:
		return "merge"
	case ModeCheck:
		return "check"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// Config holds configuration settings for a run
type Config struct {
	Spec               *KeySpec // key rules and field delimiter; nil sorts whole records
	Mode               Mode     // behavior for this run
	Stable             bool     // break key ties by input order instead of whole-record bytes
	Reverse            bool     // invert the output order
	Unique             bool     // collapse adjacent equal keys; with ModeCheck, equal keys are disorder
	MemoryLimit        int64    // resident record bytes before chunks spill to disk
	NumWorkers         int      // parallel chunk-sort workers
	ChanBuffSize       int      // buffer size for chunk hand-off channels
	SortedChanBuffSize int      // buffer size for the sorted output channel
	TempFilesDir       string   // empty for the OS default, ex: /tmp
	RecordDelimiter    byte     // delimiter for the Records/WriteRecords helpers
}

// DefaultConfig returns the default configuration used for fields left unset
func DefaultConfig() *Config {
	return &Config{
		Mode:               ModeSort,
		MemoryLimit:        1 << 30, // 1GB of resident record data
		NumWorkers:         4,
		ChanBuffSize:       1,
		SortedChanBuffSize: 10,
		TempFilesDir:       "",
		RecordDelimiter:    '\n',
	}
}

// mergeConfig fills unset fields with defaults and validates the result.
// Invalid settings are ConfigErrors at construction time; the run never
// starts.
func mergeConfig(c *Config) (*Config, error) {
	d := DefaultConfig()
	if c == nil {
		c = d
	} else {
		cc := *c
		c = &cc
	}
	if c.MemoryLimit < 0 {
		return nil, NewConfigError("MemoryLimit", c.MemoryLimit, "memory budget must be positive")
	}
	if c.MemoryLimit == 0 {
		c.MemoryLimit = d.MemoryLimit
	}
	if c.NumWorkers < 0 {
		return nil, NewConfigError("NumWorkers", c.NumWorkers, "worker count must be positive")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = d.NumWorkers
	}
	if c.ChanBuffSize < 0 {
		c.ChanBuffSize = d.ChanBuffSize
	}
	if c.SortedChanBuffSize < 0 {
		c.SortedChanBuffSize = d.SortedChanBuffSize
	}
	if c.RecordDelimiter == 0 {
		c.RecordDelimiter = d.RecordDelimiter
	}
	if c.Mode < ModeSort || c.Mode > ModeCheck {
		return nil, NewConfigError("Mode", int(c.Mode), "unknown mode")
	}
	// ModeSortUnique and Sort-with-Unique are the same run; keep the two
	// fields agreeing so the engine can test either
	if c.Mode == ModeSortUnique {
		c.Unique = true
	} else if c.Unique && c.Mode == ModeSort {
		c.Mode = ModeSortUnique
	}
	if c.Spec == nil {
		spec, err := NewKeySpec(nil, 0)
		if err != nil {
			return nil, err
		}
		c.Spec = spec
	} else {
		for i, r := range c.Spec.Rules {
			if err := r.validate(i); err != nil {
				return nil, err
			}
		}
		if len(c.Spec.Rules) == 0 {
			spec, _ := NewKeySpec(nil, c.Spec.Delimiter)
			c.Spec = spec
		}
	}
	if c.TempFilesDir != "" {
		if stat, err := os.Stat(c.TempFilesDir); err == nil && !stat.IsDir() {
			return nil, NewConfigError("TempFilesDir", c.TempFilesDir, "not a directory")
		}
	}
	return c, nil
}

// cmp builds the run's comparator from the merged config
func (c *Config) cmp() *comparator {
	return &comparator{spec: c.Spec, stable: c.Stable, reverse: c.Reverse}
}

// chunkByteLimit splits the memory budget across the chunks that can be
// resident at once (one being built plus one per sort worker).
func (c *Config) chunkByteLimit() int64 {
	limit := c.MemoryLimit / int64(c.NumWorkers+1)
	if limit < 1 {
		limit = 1
	}
	return limit
}
