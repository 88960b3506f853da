// Command linesort is a thin driver around the sort engine: it feeds files
// or stdin to the engine and writes the ordered stream to stdout or a file.
// It is deliberately not a full sort(1) replacement.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/linesort/linesort"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	Prefix:          "linesort",
})

type options struct {
	keys       []string
	separator  string
	numeric    bool
	general    bool
	month      bool
	human      bool
	version    bool
	reverse    bool
	stable     bool
	unique     bool
	check      bool
	merge      bool
	zero       bool
	bufferSize string
	tempDir    string
	output     string
}

func main() {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "linesort [flags] [file ...]",
		Short:         "sort, merge, or check delimiter-terminated records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.keys, "key", "k", nil, "sort key START[,END][OPTS], 1-based fields, OPTS in [bfgMhnrV]")
	f.StringVarP(&opts.separator, "field-separator", "t", "", "single-byte field separator (default: runs of blanks)")
	f.BoolVarP(&opts.numeric, "numeric-sort", "n", false, "compare by decimal value")
	f.BoolVarP(&opts.general, "general-numeric-sort", "g", false, "compare by floating-point value")
	f.BoolVarP(&opts.month, "month-sort", "M", false, "compare by month name")
	f.BoolVar(&opts.human, "human-numeric-sort", false, "compare human-readable sizes (2K 1G)")
	f.BoolVarP(&opts.version, "version-sort", "V", false, "natural version-number comparison")
	f.BoolVarP(&opts.reverse, "reverse", "r", false, "reverse the result")
	f.BoolVarP(&opts.stable, "stable", "s", false, "keep input order for equal keys")
	f.BoolVarP(&opts.unique, "unique", "u", false, "emit one record per distinct key")
	f.BoolVarP(&opts.check, "check", "c", false, "check whether input is sorted; emit nothing")
	f.BoolVarP(&opts.merge, "merge", "m", false, "merge already-sorted files")
	f.BoolVarP(&opts.zero, "zero-terminated", "z", false, "records end with NUL, not newline")
	f.StringVarP(&opts.bufferSize, "buffer-size", "S", "", "memory budget before spilling, ex: 512M")
	f.StringVarP(&opts.tempDir, "temporary-directory", "T", "", "directory for spill files")
	f.StringVarP(&opts.output, "output", "o", "", "write result to file instead of stdout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		var violation *linesort.OrderViolation
		if errors.As(err, &violation) {
			logger.Warn("input is not sorted", "position", violation.Position)
			os.Exit(1)
		}
		logger.Error("run failed", "err", err)
		os.Exit(2)
	}
}

func run(ctx context.Context, opts *options, files []string) error {
	config, err := buildConfig(opts)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		files = []string{"-"}
	}

	var inputs []<-chan []byte
	var inputErrs []<-chan error
	var closers []io.Closer

	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				logger.Warn("close input", "err", cerr)
			}
		}
	}()

	open := func(name string) (io.Reader, error) {
		if name == "-" {
			return os.Stdin, nil
		}
		file, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		closers = append(closers, file)
		return file, nil
	}

	if config.Mode == linesort.ModeMerge {
		// one cursor per pre-sorted file
		for _, name := range files {
			r, err := open(name)
			if err != nil {
				return err
			}
			records, errChan := linesort.Records(ctx, r, config.RecordDelimiter)
			inputs = append(inputs, records)
			inputErrs = append(inputErrs, errChan)
		}
	} else {
		readers := make([]io.Reader, 0, len(files))
		for _, name := range files {
			r, err := open(name)
			if err != nil {
				return err
			}
			readers = append(readers, r)
		}
		records, errChan := linesort.Records(ctx, io.MultiReader(readers...), config.RecordDelimiter)
		inputs = append(inputs, records)
		inputErrs = append(inputErrs, errChan)
	}

	out, errChan, err := linesort.Run(ctx, config, inputs...)
	if err != nil {
		return err
	}

	dest := io.Writer(os.Stdout)
	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		closers = append(closers, file)
		dest = file
	}

	if err := linesort.WriteRecords(ctx, dest, out, errChan, config.RecordDelimiter); err != nil {
		return err
	}
	for _, ec := range inputErrs {
		if err := <-ec; err != nil {
			return err
		}
	}
	return nil
}

func buildConfig(opts *options) (*linesort.Config, error) {
	var delim byte
	switch len(opts.separator) {
	case 0:
	case 1:
		delim = opts.separator[0]
	default:
		return nil, fmt.Errorf("field separator must be a single byte, got %q", opts.separator)
	}

	var rules []linesort.KeyRule
	for _, k := range opts.keys {
		rule, err := linesort.ParseKeyRule(k)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		// global mode flags shape the default whole-record rule
		rule := linesort.KeyRule{}
		switch {
		case opts.numeric:
			rule.Mode = linesort.Numeric
		case opts.general:
			rule.Mode = linesort.GeneralNumeric
		case opts.month:
			rule.Mode = linesort.Month
		case opts.human:
			rule.Mode = linesort.HumanSize
		case opts.version:
			rule.Mode = linesort.Version
		}
		rules = []linesort.KeyRule{rule}
	}
	spec, err := linesort.NewKeySpec(rules, delim)
	if err != nil {
		return nil, err
	}

	if opts.check && opts.merge {
		return nil, fmt.Errorf("cannot combine --check and --merge")
	}
	mode := linesort.ModeSort
	switch {
	case opts.check:
		mode = linesort.ModeCheck
	case opts.merge:
		mode = linesort.ModeMerge
	case opts.unique:
		mode = linesort.ModeSortUnique
	}

	config := &linesort.Config{
		Spec:         spec,
		Mode:         mode,
		Stable:       opts.stable,
		Reverse:      opts.reverse,
		Unique:       opts.unique,
		TempFilesDir: opts.tempDir,
	}
	if opts.zero {
		config.RecordDelimiter = 0x00
	}
	if opts.bufferSize != "" {
		size, err := parseSize(opts.bufferSize)
		if err != nil {
			return nil, err
		}
		config.MemoryLimit = size
	}
	return config, nil
}

// parseSize parses a byte count with an optional K/M/G/T suffix
func parseSize(s string) (int64, error) {
	mult := int64(1)
	num := s
	if len(s) > 0 {
		switch s[len(s)-1] {
		case 'k', 'K':
			mult = 1 << 10
		case 'm', 'M':
			mult = 1 << 20
		case 'g', 'G':
			mult = 1 << 30
		case 't', 'T':
			mult = 1 << 40
		}
		if mult != 1 {
			num = s[:len(s)-1]
		}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid buffer size %q", s)
	}
	return n * mult, nil
}
