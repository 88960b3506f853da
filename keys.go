package linesort

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ComparisonMode selects how a key's bytes are interpreted for comparison.
// The set of modes is closed; the comparator dispatches on it exhaustively.
type ComparisonMode int

const (
	// Lexicographic compares the key's raw bytes
	Lexicographic ComparisonMode = iota
	// Numeric compares decimal strings by sign and exact magnitude,
	// tolerating a leading sign and a decimal point
	Numeric
	// GeneralNumeric compares by floating-point value
	GeneralNumeric
	// Month compares by English month-name prefix (Jan < ... < Dec)
	Month
	// HumanSize compares numbers with SI suffixes (2K < 1M < 3G)
	HumanSize
	// Version compares digit runs numerically and other runs bytewise
	Version
)

func (m ComparisonMode) String() string {
	switch m {
	case Lexicographic:
		return "lexicographic"
	case Numeric:
		return "numeric"
	case GeneralNumeric:
		return "general-numeric"
	case Month:
		return "month"
	case HumanSize:
		return "human-size"
	case Version:
		return "version"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

func validMode(m ComparisonMode) bool {
	return m >= Lexicographic && m <= Version
}

// KeyRule is one key-extraction directive: a 1-based field range and how the
// extracted bytes compare. Start == 0 selects the whole record. End == 0
// extends the key through the last field.
type KeyRule struct {
	Start      int            // first field, 1-based; 0 for whole record
	End        int            // last field, inclusive; 0 for end of record
	Mode       ComparisonMode // how the key's bytes are compared
	IgnoreCase bool           // fold ASCII case before comparison
	Reverse    bool           // invert this rule's contribution only
	TrimBlanks bool           // strip leading/trailing blanks before comparison
}

func (r KeyRule) validate(i int) error {
	if !validMode(r.Mode) {
		return NewConfigError(fmt.Sprintf("KeySpec.Rules[%d].Mode", i), int(r.Mode), "unknown comparison mode")
	}
	if r.Start < 0 || r.End < 0 {
		return NewConfigError(fmt.Sprintf("KeySpec.Rules[%d]", i), fmt.Sprintf("%d,%d", r.Start, r.End), "field indices are 1-based")
	}
	if r.Start == 0 && r.End != 0 {
		return NewConfigError(fmt.Sprintf("KeySpec.Rules[%d]", i), fmt.Sprintf("%d,%d", r.Start, r.End), "whole-record rule cannot bound its end field")
	}
	if r.End != 0 && r.Start > r.End {
		return NewConfigError(fmt.Sprintf("KeySpec.Rules[%d]", i), fmt.Sprintf("%d,%d", r.Start, r.End), "start field is after end field")
	}
	return nil
}

// KeySpec is an ordered sequence of KeyRules applied left-to-right until one
// resolves a comparison, plus the field delimiter records are sliced on.
// A zero Delimiter means fields are separated by runs of blanks.
type KeySpec struct {
	Rules     []KeyRule
	Delimiter byte
}

// NewKeySpec validates rules and returns a KeySpec. An empty rule list gets
// the default whole-record lexicographic rule. Malformed rules fail here
// with a ConfigError, never per-record.
func NewKeySpec(rules []KeyRule, delimiter byte) (*KeySpec, error) {
	if len(rules) == 0 {
		rules = []KeyRule{{}}
	}
	for i, r := range rules {
		if err := r.validate(i); err != nil {
			return nil, err
		}
	}
	return &KeySpec{Rules: rules, Delimiter: delimiter}, nil
}

// keyValue is one extracted, typed comparison value. The parse for the
// rule's mode runs once here at extraction time; comparisons afterwards only
// inspect the parsed form.
type keyValue struct {
	text []byte  // Lexicographic, Version
	dec  decimal // Numeric, HumanSize
	f    float64 // GeneralNumeric
	ord  int     // Month index 1..12, HumanSize suffix rank
	ok   bool    // parse succeeded; false orders below every valid value
}

// extract computes the record's key tuple, one keyValue per rule.
// It is a pure function of (spec, line).
func (s *KeySpec) extract(line []byte) []keyValue {
	keys := make([]keyValue, len(s.Rules))
	var fields []fieldSpan
	haveFields := false
	for i, r := range s.Rules {
		if r.Start != 0 && !haveFields {
			fields = splitFields(line, s.Delimiter)
			haveFields = true
		}
		keys[i] = r.extract(line, fields)
	}
	return keys
}

// fieldSpan is a half-open byte range of one field within a record
type fieldSpan struct {
	begin, end int
}

// splitFields locates field boundaries. With an explicit delimiter every
// occurrence separates two fields, so n delimiters make n+1 fields and
// fields may be empty. With the default blank delimiter fields are maximal
// runs of non-blank bytes.
func splitFields(line []byte, delim byte) []fieldSpan {
	var spans []fieldSpan
	if delim != 0 {
		begin := 0
		for i, b := range line {
			if b == delim {
				spans = append(spans, fieldSpan{begin, i})
				begin = i + 1
			}
		}
		return append(spans, fieldSpan{begin, len(line)})
	}
	i := 0
	for i < len(line) {
		for i < len(line) && isBlank(line[i]) {
			i++
		}
		if i == len(line) {
			break
		}
		begin := i
		for i < len(line) && !isBlank(line[i]) {
			i++
		}
		spans = append(spans, fieldSpan{begin, i})
	}
	return spans
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

// slice returns the key's raw bytes for this rule: from the start of field
// Start through the end of field End (or the record's end). A rule naming
// fields the record lacks yields an empty key, not an error.
func (r KeyRule) slice(line []byte, fields []fieldSpan) []byte {
	if r.Start == 0 {
		return line
	}
	if r.Start > len(fields) {
		return nil
	}
	begin := fields[r.Start-1].begin
	if r.End == 0 || r.End > len(fields) {
		return line[begin:]
	}
	return line[begin:fields[r.End-1].end]
}

func (r KeyRule) extract(line []byte, fields []fieldSpan) keyValue {
	raw := r.slice(line, fields)
	if r.TrimBlanks {
		raw = trimBlanks(raw)
	}
	switch r.Mode {
	case Lexicographic, Version:
		if r.IgnoreCase {
			raw = foldCase(raw)
		}
		return keyValue{text: raw, ok: true}
	case Numeric:
		d := parseDecimal(raw)
		return keyValue{dec: d, ok: d.ok}
	case GeneralNumeric:
		f, ok := parseFloatPrefix(raw)
		return keyValue{f: f, ok: ok}
	case Month:
		m := parseMonth(raw)
		return keyValue{ord: m, ok: m != 0}
	case HumanSize:
		d, rank := parseHumanSize(raw)
		return keyValue{dec: d, ord: rank, ok: d.ok}
	}
	// unreachable, modes are validated at construction
	return keyValue{}
}

func trimBlanks(b []byte) []byte {
	for len(b) > 0 && isBlank(b[0]) {
		b = b[1:]
	}
	for len(b) > 0 && isBlank(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

// foldCase upper-cases ASCII letters into a fresh slice when needed
func foldCase(b []byte) []byte {
	fold := -1
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			fold = i
			break
		}
	}
	if fold < 0 {
		return b
	}
	out := make([]byte, len(b))
	copy(out, b)
	for i := fold; i < len(out); i++ {
		if out[i] >= 'a' && out[i] <= 'z' {
			out[i] -= 'a' - 'A'
		}
	}
	return out
}

// decimal is an exact parsed decimal string: sign, integer digits with
// leading zeros stripped, fraction digits with trailing zeros stripped.
// Comparison on this form is exact regardless of magnitude, unlike a
// float64 round trip.
type decimal struct {
	neg  bool
	ip   []byte // integer digits, no leading zeros
	fp   []byte // fraction digits, no trailing zeros
	ok   bool
	tail int // bytes consumed from the input, for suffix parsing
}

// parseDecimal scans a decimal number prefix: optional blanks, optional
// sign, digits with at most one decimal point. A prefix with no digits
// fails the parse; the caller treats that as the mode's lowest sentinel
// rather than an error, matching conventional sort-tool leniency.
func parseDecimal(b []byte) decimal {
	var d decimal
	i := 0
	for i < len(b) && isBlank(b[i]) {
		i++
	}
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		d.neg = b[i] == '-'
		i++
	}
	ipBegin := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	ip := b[ipBegin:i]
	var fp []byte
	if i < len(b) && b[i] == '.' {
		fpBegin := i + 1
		j := fpBegin
		for j < len(b) && b[j] >= '0' && b[j] <= '9' {
			j++
		}
		if j > fpBegin {
			fp = b[fpBegin:j]
			i = j
		}
	}
	if len(ip) == 0 && len(fp) == 0 {
		return decimal{}
	}
	for len(ip) > 0 && ip[0] == '0' {
		ip = ip[1:]
	}
	for len(fp) > 0 && fp[len(fp)-1] == '0' {
		fp = fp[:len(fp)-1]
	}
	d.ip, d.fp = ip, fp
	d.ok = true
	d.tail = i
	if len(ip) == 0 && len(fp) == 0 {
		// all zeros; normalize the sign so -0 == 0
		d.neg = false
	}
	return d
}

func (d decimal) isZero() bool {
	return len(d.ip) == 0 && len(d.fp) == 0
}

// compareDecimal is an exact three-way comparison of two parsed decimals.
// A failed parse orders below every valid number; two failed parses are equal.
func compareDecimal(a, b decimal) int {
	if !a.ok || !b.ok {
		return boolCompare(a.ok, b.ok)
	}
	if a.isZero() && b.isZero() {
		return 0
	}
	if a.neg != b.neg {
		if a.neg {
			return -1
		}
		return 1
	}
	c := compareMagnitude(a, b)
	if a.neg {
		return -c
	}
	return c
}

func compareMagnitude(a, b decimal) int {
	if len(a.ip) != len(b.ip) {
		if len(a.ip) < len(b.ip) {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(a.ip, b.ip); c != 0 {
		return c
	}
	// trailing zeros are stripped, so shorter-prefix fractions are smaller
	// and bytewise comparison is numeric order
	return bytes.Compare(a.fp, b.fp)
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// parseFloatPrefix parses the longest float prefix of b for general-numeric
// comparison. NaN and unparsable values report !ok and order below every
// number.
func parseFloatPrefix(b []byte) (float64, bool) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, !math.IsNaN(f)
	}
	// back off to the longest prefix that parses
	for i := len(s) - 1; i > 0; i-- {
		if f, err := strconv.ParseFloat(s[:i], 64); err == nil {
			return f, !math.IsNaN(f)
		}
	}
	return 0, false
}

var monthNames = [12]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// parseMonth maps an English month-name prefix to 1..12, or 0 when the key
// does not start with a month. The match is case-insensitive on the first
// three letters.
func parseMonth(b []byte) int {
	i := 0
	for i < len(b) && isBlank(b[i]) {
		i++
	}
	b = b[i:]
	if len(b) < 3 {
		return 0
	}
	var abbr [3]byte
	for i := 0; i < 3; i++ {
		c := b[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		abbr[i] = c
	}
	for m, name := range monthNames {
		if string(abbr[:]) == name {
			return m + 1
		}
	}
	return 0
}

const humanSuffixes = "KMGTPEZY"

// parseHumanSize parses a decimal number with an optional SI suffix,
// returning the parsed value and the suffix's magnitude rank (K=1 .. Y=8,
// no suffix 0). Ordering is sign first, then rank, then value, so 500K
// sorts below 2G without expanding either.
func parseHumanSize(b []byte) (decimal, int) {
	d := parseDecimal(b)
	if !d.ok {
		return d, 0
	}
	if d.tail < len(b) {
		c := b[d.tail]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if i := strings.IndexByte(humanSuffixes, c); i >= 0 {
			return d, i + 1
		}
	}
	return d, 0
}

// compareVersion orders byte strings the way version numbers expect: maximal
// digit runs compare numerically (ignoring leading zeros), other bytes
// compare directly.
func compareVersion(a, b []byte) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ia, ja := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			da, db := a[ia:i], b[ja:j]
			for len(da) > 0 && da[0] == '0' {
				da = da[1:]
			}
			for len(db) > 0 && db[0] == '0' {
				db = db[1:]
			}
			if len(da) != len(db) {
				if len(da) < len(db) {
					return -1
				}
				return 1
			}
			if c := bytes.Compare(da, db); c != 0 {
				return c
			}
			continue
		}
		if a[i] != b[j] {
			if a[i] < b[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	return (len(a) - i) - (len(b) - j)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ParseKeyRule parses a key directive of the form "START[,END][OPTS]" with
// 1-based field numbers, ex: "2,2n" or "3Vr". OPTS may follow either field
// number: b (trim blanks), f (fold case), r (reverse), and one of
// n/g/M/h/V selecting the comparison mode. "2" alone keys from field 2
// through the end of the record.
func ParseKeyRule(s string) (KeyRule, error) {
	var r KeyRule
	rest, err := parseKeyPart(s, &r, true)
	if err != nil {
		return r, err
	}
	if rest != "" {
		if rest[0] != ',' {
			return r, NewConfigError("key", s, "expected ',' before end field")
		}
		rest, err = parseKeyPart(rest[1:], &r, false)
		if err != nil {
			return r, err
		}
		if rest != "" {
			return r, NewConfigError("key", s, "trailing garbage after end field")
		}
	}
	if err := r.validate(0); err != nil {
		return r, err
	}
	return r, nil
}

func parseKeyPart(s string, r *KeyRule, start bool) (string, error) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 {
		return s, NewConfigError("key", s, "expected field number")
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n < 1 {
		return s, NewConfigError("key", s[:i], "invalid field number")
	}
	if start {
		r.Start = n
	} else {
		r.End = n
	}
	for i < len(s) && s[i] != ',' {
		switch s[i] {
		case 'n':
			r.Mode = Numeric
		case 'g':
			r.Mode = GeneralNumeric
		case 'M':
			r.Mode = Month
		case 'h':
			r.Mode = HumanSize
		case 'V':
			r.Mode = Version
		case 'r':
			r.Reverse = true
		case 'b':
			r.TrimBlanks = true
		case 'f':
			r.IgnoreCase = true
		default:
			return s, NewConfigError("key", string(s[i]), "unknown key option")
		}
		i++
	}
	return s[i:], nil
}
