package linesort

import (
	"fmt"
)

// ConfigError represents an invalid configuration or key rule.
// It is surfaced at construction time, before any input is read.
type ConfigError struct {
	// Field is the name of the configuration field that's invalid
	Field string
	// Value is the invalid value provided
	Value interface{}
	// Reason explains why the value is invalid
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %s", e.Field, e.Value, e.Reason)
}

// NewConfigError creates a ConfigError
func NewConfigError(field string, value interface{}, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// IOError represents a read/write/delete failure on input, output, or
// temporary storage. It is fatal to the run; the engine attempts best-effort
// cleanup of spill state before surfacing it.
type IOError struct {
	// Op is the operation that failed, ex: "write spill frame"
	Op string
	// Path is the file involved, if known
	Path string
	// Err is the underlying error
	Err error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error during %s on %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates an IOError wrapping the underlying error
func NewIOError(err error, op, path string) error {
	return &IOError{Op: op, Path: path, Err: err}
}

// OrderViolation reports the first out-of-order record found in Check mode.
// It is the designed detection result, not an engine failure: the scan
// completed and found the input unsorted at Position.
type OrderViolation struct {
	// Position is the 1-based record position of the first record that
	// compares below its predecessor (or equal, when unique checking).
	Position uint64
}

func (e *OrderViolation) Error() string {
	return fmt.Sprintf("records out of order at position %d", e.Position)
}
