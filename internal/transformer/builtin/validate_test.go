package builtin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txnetl/internal/schema"
	"txnetl/pkg/records"
)

/*
TestValidateEmail separates encoding violations (non-ASCII) from structural
violations (grammar mismatch). Missing values are never violations.
*/
func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name string
		in   records.Value
		want VerdictKind
	}{
		{"valid", records.Str("user@domain.com"), Ok},
		{"valid_padded", records.Str("  user.name+tag@sub.domain.org "), Ok},
		{"no_tld", records.Str("user@domain"), PatternViolation},
		{"no_at", records.Str("userdomain.com"), PatternViolation},
		{"short_tld", records.Str("user@domain.c"), PatternViolation},
		{"non_ascii_local", records.Str("jürgen@domain.com"), EncodingViolation},
		{"non_ascii_and_broken", records.Str("jürgen@domain"), EncodingViolation},
		{"replacement_char", records.Str("us\ufffder@domain.com"), EncodingViolation},
		{"missing", records.Null, Missing},
		{"blank", records.Str("  "), Missing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateEmail(tt.in).Kind)
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		in   string
		want VerdictKind
	}{
		{"+1 (555) 123-4567", Ok},
		{"5551234", Ok},
		{"555-123", PatternViolation},
		{"call me", PatternViolation},
		{"", Missing},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidatePhone(records.Str(tt.in)).Kind, "phone %q", tt.in)
	}
}

/*
TestIdentifierPatterns covers the fixed-prefix identifier rules and the
product-code alphabet.
*/
func TestIdentifierPatterns(t *testing.T) {
	tests := []struct {
		name string
		fn   func(records.Value) Verdict
		in   string
		want VerdictKind
	}{
		{"txn_ok", ValidateTransactionID, "TXN1234567890", Ok},
		{"txn_short", ValidateTransactionID, "TXN123", PatternViolation},
		{"txn_long", ValidateTransactionID, "TXN12345678901", PatternViolation},
		{"txn_lower_prefix", ValidateTransactionID, "txn1234567890", PatternViolation},
		{"txn_letter", ValidateTransactionID, "TXN12345678A0", PatternViolation},
		{"txn_padded", ValidateTransactionID, " TXN1234567890 ", Ok},
		{"cust_ok", ValidateCustomerID, "CUST00042", Ok},
		{"cust_short", ValidateCustomerID, "CUST42", PatternViolation},
		{"cust_missing", ValidateCustomerID, "", Missing},
		{"product_ok", ValidateProductCode, "AB12CD34", Ok},
		{"product_lower", ValidateProductCode, "ab12cd34", PatternViolation},
		{"product_seven", ValidateProductCode, "AB12CD3", PatternViolation},
		{"product_dash", ValidateProductCode, "AB12-D34", PatternViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(records.Str(tt.in)).Kind)
		})
	}
}

func TestValidateDate(t *testing.T) {
	v, d := ValidateDate(records.Str("2023-02-28"))
	require.Equal(t, Ok, v.Kind)
	assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), d)

	v, d = ValidateDate(records.Str("2023-02-30"))
	assert.Equal(t, ParseFailure, v.Kind)
	assert.True(t, d.IsZero())

	v, _ = ValidateDate(records.Str("28/02/2023"))
	assert.Equal(t, ParseFailure, v.Kind)

	v, _ = ValidateDate(records.Null)
	assert.Equal(t, Missing, v.Kind)
}

/*
TestCheckDispatch makes sure Check routes every rule of the transactional
contract to its validator and treats rule-less fields as always valid.
*/
func TestCheckDispatch(t *testing.T) {
	c := schema.Transactions()
	field := func(name string) schema.Field {
		f, ok := c.Field(name)
		require.True(t, ok, name)
		return f
	}

	assert.Equal(t, PatternViolation, Check(field(schema.ColEmail), records.Str("x@y")).Kind)
	assert.Equal(t, PatternViolation, Check(field(schema.ColPhone), records.Str("12")).Kind)
	assert.Equal(t, ParseFailure, Check(field(schema.ColOrderDate), records.Str("nope")).Kind)
	assert.Equal(t, RangeViolation, Check(field(schema.ColRating), records.Str("5.01")).Kind)
	assert.Equal(t, ParseFailure, Check(field(schema.ColQuantity), records.Str("abc")).Kind)
	assert.Equal(t, Ok, Check(field(schema.ColCountry), records.Str("anything at all")).Kind)
	assert.Equal(t, Missing, Check(field(schema.ColCountry), records.Str(" ")).Kind)

	assert.False(t, Verdict{Kind: Missing}.Failed())
	assert.True(t, Verdict{Kind: EncodingViolation}.Failed())
	assert.Equal(t, "pattern_violation", PatternViolation.String())
}
