package linesort_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/linesort/linesort"
)

// Sort tab-separated records by a numeric second field, breaking ties on
// the first field.
func Example() {
	spec, err := linesort.NewKeySpec([]linesort.KeyRule{
		{Start: 2, End: 2, Mode: linesort.Numeric},
		{Start: 1, End: 1},
	}, '\t')
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	input := strings.NewReader("banana\t3\napple\t10\ncherry\t3\n")
	records, readErrs := linesort.Records(ctx, input, '\n')

	out, errChan, err := linesort.Run(ctx, &linesort.Config{Spec: spec}, records)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := linesort.WriteRecords(ctx, os.Stdout, out, errChan, '\n'); err != nil {
		fmt.Println(err)
		return
	}
	if err := <-readErrs; err != nil {
		fmt.Println(err)
	}
	// Output:
	// banana	3
	// cherry	3
	// apple	10
}

// Verify a stream is already sorted without producing any output.
func ExampleCheck() {
	ctx := context.Background()
	records, _ := linesort.Records(ctx, strings.NewReader("1\n3\n2\n"), '\n')

	spec, _ := linesort.NewKeySpec([]linesort.KeyRule{{Mode: linesort.Numeric}}, 0)
	err := linesort.Check(ctx, records, &linesort.Config{Spec: spec, Mode: linesort.ModeCheck})
	fmt.Println(err)
	// Output:
	// records out of order at position 3
}
