package linesort

import (
	"bytes"
	"cmp"
)

// comparator is the engine's total order over Records. Rules resolve
// left-to-right; a rule's Reverse flag inverts only that rule. When every
// rule ties, stable mode breaks the tie by original input position so equal
// keys keep their input order. Otherwise a whole-record byte comparison runs
// first (the conventional last-resort comparison), with the position as the
// final tie-break so any pair compares the same way for the entire run.
type comparator struct {
	spec    *KeySpec
	stable  bool
	reverse bool // invert the whole ordering, not just one rule
}

func (c *comparator) tuple(r *Record) []keyValue {
	if r.keys == nil {
		r.keys = c.spec.extract(r.Data)
	}
	return r.keys
}

// compareKeys resolves only the key rules, without any fallback.
// Unique collapse and the merge frontier use this to decide key equality.
func (c *comparator) compareKeys(a, b *Record) int {
	ka, kb := c.tuple(a), c.tuple(b)
	for i, rule := range c.spec.Rules {
		d := compareKey(rule.Mode, ka[i], kb[i])
		if rule.Reverse {
			d = -d
		}
		if d != 0 {
			return c.flip(d)
		}
	}
	return 0
}

// compareRecords is the full total order used by the chunk sorter and the
// merge frontier. It never returns 0 for distinct records: the positional
// tie-break makes the order strict, which keeps parallel chunk sorts and the
// k-way merge deterministic.
func (c *comparator) compareRecords(a, b *Record) int {
	if d := c.compareKeys(a, b); d != 0 {
		return d
	}
	if !c.stable {
		if d := c.compareBytes(a, b); d != 0 {
			return d
		}
	}
	return cmp.Compare(a.Pos, b.Pos)
}

// compareBytes is the whole-record last-resort comparison
func (c *comparator) compareBytes(a, b *Record) int {
	return c.flip(bytes.Compare(a.Data, b.Data))
}

func (c *comparator) flip(d int) int {
	if c.reverse {
		return -d
	}
	return d
}

// compareKey resolves one rule's pair of extracted values. Parse failures
// were mapped to sentinels at extraction time: a failed value orders below
// every valid one and equal to another failed value.
func compareKey(mode ComparisonMode, a, b keyValue) int {
	switch mode {
	case Lexicographic:
		return bytes.Compare(a.text, b.text)
	case Numeric:
		return compareDecimal(a.dec, b.dec)
	case GeneralNumeric:
		if !a.ok || !b.ok {
			return boolCompare(a.ok, b.ok)
		}
		return cmp.Compare(a.f, b.f)
	case Month:
		if !a.ok || !b.ok {
			return boolCompare(a.ok, b.ok)
		}
		return cmp.Compare(a.ord, b.ord)
	case HumanSize:
		return compareHuman(a, b)
	case Version:
		return compareVersion(a.text, b.text)
	}
	return 0
}

// compareHuman orders human-readable sizes: sign first, then suffix
// magnitude rank, then the exact decimal value.
func compareHuman(a, b keyValue) int {
	if !a.ok || !b.ok {
		return boolCompare(a.ok, b.ok)
	}
	sa, sb := humanSign(a.dec), humanSign(b.dec)
	if sa != sb {
		return cmp.Compare(sa, sb)
	}
	if a.ord != b.ord {
		d := cmp.Compare(a.ord, b.ord)
		if sa < 0 {
			d = -d
		}
		return d
	}
	return compareDecimal(a.dec, b.dec)
}

func humanSign(d decimal) int {
	switch {
	case d.isZero():
		return 0
	case d.neg:
		return -1
	default:
		return 1
	}
}
