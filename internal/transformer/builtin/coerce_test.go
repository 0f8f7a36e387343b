package builtin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"txnetl/internal/schema"
	"txnetl/pkg/records"
)

/*
TestParseNumber keeps missing and unparseable apart: an empty cell is
missing only, "abc" is a parse failure only. NaN is rejected; Inf is a number.
*/
func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		in     records.Value
		status NumberStatus
		f      float64
	}{
		{"null", records.Null, NumberMissing, 0},
		{"empty", records.Str(""), NumberMissing, 0},
		{"blank", records.Str("  "), NumberMissing, 0},
		{"int", records.Str("42"), NumberOK, 42},
		{"padded_float", records.Str(" 3.5 "), NumberOK, 3.5},
		{"exponent", records.Str("1e2"), NumberOK, 100},
		{"negative", records.Str("-0.01"), NumberOK, -0.01},
		{"abc", records.Str("abc"), NumberParseFailure, 0},
		{"comma_decimal", records.Str("3,5"), NumberParseFailure, 0},
		{"nan", records.Str("NaN"), NumberParseFailure, 0},
		{"underscore_digits", records.Str("1_000"), NumberOK, 1000},
		{"underscore_fraction", records.Str("1_000.2_5"), NumberOK, 1000.25},
		{"double_underscore", records.Str("1__000"), NumberParseFailure, 0},
		{"leading_underscore", records.Str("_1"), NumberParseFailure, 0},
		{"trailing_underscore", records.Str("1_"), NumberParseFailure, 0},
		{"hex_float", records.Str("0x1p3"), NumberParseFailure, 0},
		{"signed_hex", records.Str("-0X10"), NumberParseFailure, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumber(tt.in)
			assert.Equal(t, tt.status, got.Status)
			if tt.status == NumberOK {
				assert.InDelta(t, tt.f, got.F, 1e-12)
			}
		})
	}

	inf := ParseNumber(records.Str("1e400"))
	assert.True(t, inf.OK())
	assert.True(t, math.IsInf(inf.F, 1))

	word := ParseNumber(records.Str("-Infinity"))
	assert.True(t, word.OK())
	assert.True(t, math.IsInf(word.F, -1))
}

/*
TestCheckNumberBoundaries pins the inclusive range edges of every numeric rule.
*/
func TestCheckNumberBoundaries(t *testing.T) {
	tests := []struct {
		rule   schema.Rule
		in     string
		kind   VerdictKind
		reason string
	}{
		{schema.RulePercent, "100", Ok, ""},
		{schema.RulePercent, "0", Ok, ""},
		{schema.RulePercent, "100.0001", RangeViolation, ReasonOutOfRange},
		{schema.RulePercent, "-1", RangeViolation, ReasonOutOfRange},
		{schema.RuleRating, "5", Ok, ""},
		{schema.RuleRating, "5.01", RangeViolation, ReasonOutOfRange},
		{schema.RuleNonNegative, "0", Ok, ""},
		{schema.RuleNonNegative, "-0.01", RangeViolation, ReasonNegative},
		{schema.RuleNonNegative, "-1e400", RangeViolation, ReasonNegative},
		{schema.RuleNonNegative, "abc", ParseFailure, "not a number"},
		{schema.RuleNonNegative, "", Missing, ""},
	}
	for _, tt := range tests {
		v, _ := CheckNumber(tt.rule, records.Str(tt.in))
		assert.Equal(t, tt.kind, v.Kind, "rule %d value %q", tt.rule, tt.in)
		assert.Equal(t, tt.reason, v.Reason, "rule %d value %q", tt.rule, tt.in)
	}
}

/*
TestConsistency uses the worked example: 2*10*0.9*1.05 = 18.9. A total of
18.9 passes, 20.5 mismatches, and a missing input skips the check entirely.
*/
func TestConsistency(t *testing.T) {
	c := NewConsistency(0)
	assert.Equal(t, DefaultTotalTolerance, c.Tolerance)

	num := func(s string) NumberResult { return ParseNumber(records.Str(s)) }
	q, u, d, tax := num("2"), num("10"), num("10"), num("5")

	assert.InDelta(t, 18.9, Expected(2, 10, 10, 5), 1e-9)
	assert.Equal(t, ConsistencyOK, c.Check(q, u, d, tax, num("18.9")))
	assert.Equal(t, ConsistencyOK, c.Check(q, u, d, tax, num("18.93")))
	assert.Equal(t, ConsistencyMismatch, c.Check(q, u, d, tax, num("20.5")))
	assert.Equal(t, ConsistencySkipped, c.Check(q, u, d, tax, num("")))
	assert.Equal(t, ConsistencySkipped, c.Check(num("abc"), u, d, tax, num("18.9")))

	// A range violation on an input does not skip the check.
	assert.Equal(t, ConsistencyMismatch, c.Check(num("-2"), u, d, tax, num("18.9")))

	wide := NewConsistency(2)
	assert.Equal(t, ConsistencyOK, wide.Check(q, u, d, tax, num("20.5")))
}

func TestConsistencyCheckRecord(t *testing.T) {
	h := records.NewHeader([]string{"quantity", "unit_price", "discount_percent", "tax_rate", "total_amount"})
	rec := records.Record{Header: h, Row: 1, Values: []records.Value{
		records.Str("2"), records.Str("10"), records.Str("10"), records.Str("5"), records.Str("20.5"),
	}}
	assert.Equal(t, ConsistencyMismatch, NewConsistency(0).CheckRecord(rec))

	short := records.Record{Header: records.NewHeader([]string{"quantity"}), Values: []records.Value{records.Str("2")}}
	assert.Equal(t, ConsistencySkipped, NewConsistency(0).CheckRecord(short))
}
