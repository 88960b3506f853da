package linesort

import (
	"bytes"
	"testing"
)

func TestKeySpecValidation(t *testing.T) {
	cases := []struct {
		name string
		rule KeyRule
		ok   bool
	}{
		{"whole record", KeyRule{}, true},
		{"single field", KeyRule{Start: 2, End: 2}, true},
		{"open end", KeyRule{Start: 3}, true},
		{"start after end", KeyRule{Start: 3, End: 2}, false},
		{"negative start", KeyRule{Start: -1}, false},
		{"whole record with end", KeyRule{End: 2}, false},
		{"unknown mode", KeyRule{Start: 1, Mode: ComparisonMode(99)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewKeySpec([]KeyRule{tc.rule}, 0)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected ConfigError, got nil")
				}
				if _, isConfig := err.(*ConfigError); !isConfig {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
			}
		})
	}
}

func TestDefaultRule(t *testing.T) {
	spec, err := NewKeySpec(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Rules) != 1 {
		t.Fatalf("expected 1 default rule, got %d", len(spec.Rules))
	}
	if spec.Rules[0].Start != 0 || spec.Rules[0].Mode != Lexicographic {
		t.Fatalf("default rule should be whole-record lexicographic, got %+v", spec.Rules[0])
	}
}

func TestFieldSlicing(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		delim byte
		rule  KeyRule
		want  string
	}{
		{"tab single field", "banana\t3", '\t', KeyRule{Start: 2, End: 2}, "3"},
		{"tab first field", "banana\t3", '\t', KeyRule{Start: 1, End: 1}, "banana"},
		{"tab open end", "a\tb\tc", '\t', KeyRule{Start: 2}, "b\tc"},
		{"missing field", "a\tb", '\t', KeyRule{Start: 5}, ""},
		{"end past last", "a\tb", '\t', KeyRule{Start: 1, End: 9}, "a\tb"},
		{"blank runs", "  alpha \t beta", 0, KeyRule{Start: 2, End: 2}, "beta"},
		{"blank first", "  alpha \t beta", 0, KeyRule{Start: 1, End: 1}, "alpha"},
		{"empty fields", "a::b", ':', KeyRule{Start: 2, End: 2}, ""},
		{"whole record", "x y", 0, KeyRule{}, "x y"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var fields []fieldSpan
			if tc.rule.Start != 0 {
				fields = splitFields([]byte(tc.line), tc.delim)
			}
			got := tc.rule.slice([]byte(tc.line), fields)
			if string(got) != tc.want {
				t.Errorf("slice(%q) = %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		neg  bool
		zero bool
	}{
		{"10", true, false, false},
		{"-3.5", true, true, false},
		{"+42", true, false, false},
		{"  7", true, false, false},
		{".5", true, false, false},
		{"0", true, false, true},
		{"-0", true, false, true},
		{"0.000", true, false, true},
		{"abc", false, false, false},
		{"", false, false, false},
		{"-", false, false, false},
		{".", false, false, false},
	}
	for _, tc := range cases {
		d := parseDecimal([]byte(tc.in))
		if d.ok != tc.ok {
			t.Errorf("parseDecimal(%q).ok = %v, want %v", tc.in, d.ok, tc.ok)
			continue
		}
		if !tc.ok {
			continue
		}
		if d.neg != tc.neg {
			t.Errorf("parseDecimal(%q).neg = %v, want %v", tc.in, d.neg, tc.neg)
		}
		if d.isZero() != tc.zero {
			t.Errorf("parseDecimal(%q).isZero = %v, want %v", tc.in, d.isZero(), tc.zero)
		}
	}
}

func TestCompareDecimal(t *testing.T) {
	// ordered lowest to highest; "x" is the unparsable sentinel
	ordered := []string{"x", "-100", "-2.5", "-2", "0", "0.13", "0.2", "2", "10", "10.01", "12345678901234567890", "12345678901234567891"}
	for i := range ordered {
		for j := range ordered {
			a, b := parseDecimal([]byte(ordered[i])), parseDecimal([]byte(ordered[j]))
			got := compareDecimal(a, b)
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if sign(got) != want {
				t.Errorf("compareDecimal(%q, %q) = %d, want sign %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"Jan", 1}, {"january", 1}, {"DEC", 12}, {"  sep", 9},
		{"Ju", 0}, {"foo", 0}, {"", 0}, {"13", 0},
	}
	for _, tc := range cases {
		if got := parseMonth([]byte(tc.in)); got != tc.want {
			t.Errorf("parseMonth(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseHumanSize(t *testing.T) {
	cases := []struct {
		in   string
		rank int
		ok   bool
	}{
		{"100", 0, true},
		{"2K", 1, true},
		{"2k", 1, true},
		{"1.5M", 2, true},
		{"3G", 3, true},
		{"9Y", 8, true},
		{"foo", 0, false},
	}
	for _, tc := range cases {
		d, rank := parseHumanSize([]byte(tc.in))
		if d.ok != tc.ok || rank != tc.rank {
			t.Errorf("parseHumanSize(%q) = (ok=%v, rank=%d), want (ok=%v, rank=%d)", tc.in, d.ok, rank, tc.ok, tc.rank)
		}
	}
}

func TestCompareVersion(t *testing.T) {
	ordered := []string{"", "1.0", "1.0.2", "1.0.10", "1.2", "1.10", "2.0", "v1", "v2", "v10"}
	for i := range ordered {
		for j := range ordered {
			got := sign(compareVersion([]byte(ordered[i]), []byte(ordered[j])))
			want := sign(i - j)
			if got != want {
				t.Errorf("compareVersion(%q, %q) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
	if compareVersion([]byte("007"), []byte("7")) != 0 {
		t.Error("leading zeros should not affect version digit runs")
	}
}

func TestFoldCase(t *testing.T) {
	if got := foldCase([]byte("MiXed-09z")); string(got) != "MIXED-09Z" {
		t.Errorf("foldCase = %q", got)
	}
	in := []byte("ALREADY")
	if got := foldCase(in); &got[0] != &in[0] {
		t.Error("foldCase should not copy when no folding is needed")
	}
}

func TestExtractSentinel(t *testing.T) {
	spec, err := NewKeySpec([]KeyRule{{Start: 1, End: 1, Mode: Numeric}}, '\t')
	if err != nil {
		t.Fatal(err)
	}
	keys := spec.extract([]byte("notanumber\t5"))
	if keys[0].ok {
		t.Error("unparsable numeric key should carry the sentinel, not a value")
	}
	keys = spec.extract([]byte("17\tx"))
	if !keys[0].ok {
		t.Error("numeric key failed to parse")
	}
}

func TestParseKeyRule(t *testing.T) {
	cases := []struct {
		in   string
		want KeyRule
		ok   bool
	}{
		{"2", KeyRule{Start: 2}, true},
		{"2,2", KeyRule{Start: 2, End: 2}, true},
		{"2,2n", KeyRule{Start: 2, End: 2, Mode: Numeric}, true},
		{"1V", KeyRule{Start: 1, Mode: Version}, true},
		{"3,4rb", KeyRule{Start: 3, End: 4, Reverse: true, TrimBlanks: true}, true},
		{"1f", KeyRule{Start: 1, IgnoreCase: true}, true},
		{"5,5h", KeyRule{Start: 5, End: 5, Mode: HumanSize}, true},
		{"0", KeyRule{}, false},
		{"", KeyRule{}, false},
		{"2,1", KeyRule{}, false},
		{"2x", KeyRule{}, false},
		{"2,", KeyRule{}, false},
	}
	for _, tc := range cases {
		got, err := ParseKeyRule(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseKeyRule(%q) error: %v", tc.in, err)
			} else if got != tc.want {
				t.Errorf("ParseKeyRule(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		} else if err == nil {
			t.Errorf("ParseKeyRule(%q) should fail", tc.in)
		}
	}
}

func TestTrimBlanks(t *testing.T) {
	if got := trimBlanks([]byte(" \t x \t ")); !bytes.Equal(got, []byte("x")) {
		t.Errorf("trimBlanks = %q", got)
	}
}
