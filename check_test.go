package linesort

import (
	"context"
	"errors"
	"testing"
)

func checkErr(t *testing.T, lines []string, config *Config) error {
	t.Helper()
	return Check(context.Background(), feed(lines), config)
}

func TestCheckSorted(t *testing.T) {
	spec, err := NewKeySpec([]KeyRule{{Mode: Numeric}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	// duplicates allowed: 1,2,2,3 is in order
	if err := checkErr(t, []string{"1", "2", "2", "3"}, &Config{Spec: spec, Mode: ModeCheck}); err != nil {
		t.Fatalf("sorted input reported: %v", err)
	}
}

func TestCheckViolation(t *testing.T) {
	spec, err := NewKeySpec([]KeyRule{{Mode: Numeric}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	err = checkErr(t, []string{"1", "3", "2"}, &Config{Spec: spec, Mode: ModeCheck})
	var violation *OrderViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected OrderViolation, got %v", err)
	}
	if violation.Position != 3 {
		t.Fatalf("violation at position %d, want 3", violation.Position)
	}
}

func TestCheckUniqueStrict(t *testing.T) {
	spec, err := NewKeySpec([]KeyRule{{Mode: Numeric}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	err = checkErr(t, []string{"1", "2", "2", "3"}, &Config{Spec: spec, Mode: ModeCheck, Unique: true})
	var violation *OrderViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected OrderViolation for duplicate under unique checking, got %v", err)
	}
	if violation.Position != 3 {
		t.Fatalf("violation at position %d, want 3", violation.Position)
	}
}

func TestCheckEmptyAndSingle(t *testing.T) {
	if err := checkErr(t, nil, &Config{Mode: ModeCheck}); err != nil {
		t.Fatalf("empty input reported: %v", err)
	}
	if err := checkErr(t, []string{"only"}, &Config{Mode: ModeCheck}); err != nil {
		t.Fatalf("single record reported: %v", err)
	}
}

func TestCheckByteFallbackWithoutStable(t *testing.T) {
	spec, err := NewKeySpec([]KeyRule{{Start: 1, End: 1}}, '\t')
	if err != nil {
		t.Fatal(err)
	}
	// equal keys but descending record bytes: disorder unless stable
	lines := []string{"k\tb", "k\ta"}
	err = checkErr(t, lines, &Config{Spec: spec, Mode: ModeCheck})
	var violation *OrderViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected OrderViolation from the record fallback, got %v", err)
	}
	if err := checkErr(t, lines, &Config{Spec: spec, Mode: ModeCheck, Stable: true}); err != nil {
		t.Fatalf("stable checking should accept equal keys in any byte order: %v", err)
	}
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := make(chan []byte) // never fed, never closed
	if err := Check(ctx, in, &Config{Mode: ModeCheck}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
