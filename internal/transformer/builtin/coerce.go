package builtin

import (
	"math"
	"strconv"

	"txnetl/internal/schema"
	"txnetl/pkg/records"
)

// NumberStatus is the tri-state outcome of parsing a numeric cell.
type NumberStatus uint8

const (
	NumberMissing NumberStatus = iota
	NumberOK
	NumberParseFailure
)

// NumberResult is a parsed numeric cell. F is meaningful only when Status is
// NumberOK.
type NumberResult struct {
	Status NumberStatus
	F      float64
}

// OK reports whether the cell parsed to a number.
func (n NumberResult) OK() bool { return n.Status == NumberOK }

// ParseNumber converts a raw cell into a NumberResult. Surrounding whitespace
// is ignored. The grammar is decimal only: an optional sign, digits with an
// optional fraction and exponent, single underscores between digits (1_000),
// and inf/infinity in any case. Hex floats such as 0x1p3 are parse failures.
// NaN is a parse failure so that it can never slip through range checks,
// while ±Inf parses and is left to the range checks.
func ParseNumber(v records.Value) NumberResult {
	if IsMissing(v) {
		return NumberResult{Status: NumberMissing}
	}
	s := Trim(v.S)
	if hexPrefixed(s) {
		return NumberResult{Status: NumberParseFailure}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// ParseFloat reports out-of-range magnitudes with ±Inf and ErrRange;
		// those are numbers, just huge ones.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return NumberResult{Status: NumberParseFailure}
		}
	}
	if math.IsNaN(f) {
		return NumberResult{Status: NumberParseFailure}
	}
	return NumberResult{Status: NumberOK, F: f}
}

// hexPrefixed reports a signed or unsigned 0x prefix.
func hexPrefixed(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// CheckRange applies a numeric rule to an already-parsed value.
func CheckRange(rule schema.Rule, n NumberResult) Verdict {
	switch n.Status {
	case NumberMissing:
		return verdictMissing
	case NumberParseFailure:
		return Verdict{Kind: ParseFailure, Reason: "not a number"}
	}
	lo, hi := rule.Bounds()
	if n.F >= lo && n.F <= hi {
		return verdictOK
	}
	if rule == schema.RuleNonNegative {
		return Verdict{Kind: RangeViolation, Reason: ReasonNegative}
	}
	return Verdict{Kind: RangeViolation, Reason: ReasonOutOfRange}
}

// CheckNumber parses v and applies rule, returning both the verdict and the
// parse result so callers can reuse the value.
func CheckNumber(rule schema.Rule, v records.Value) (Verdict, NumberResult) {
	n := ParseNumber(v)
	return CheckRange(rule, n), n
}
