package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"txnetl/pkg/records"
)

const nbspace = "\u00a0"

/*
TestIsMissing verifies the uniform missing-value rule: null, empty and
whitespace-only cells are missing; anything with a visible character is not,
including the literal string "0".
*/
func TestIsMissing(t *testing.T) {
	tests := []struct {
		name string
		in   records.Value
		want bool
	}{
		{"null", records.Null, true},
		{"empty", records.Str(""), true},
		{"spaces", records.Str("   "), true},
		{"tabs_and_newlines", records.Str("\t\r\n"), true},
		{"nbsp_only", records.Str(nbspace + nbspace), true},
		{"zero", records.Str("0"), false},
		{"padded_value", records.Str("  x "), false},
		{"inner_space", records.Str("a b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMissing(tt.in))
		})
	}
}

/*
TestHasEdgeSpace covers ASCII and Unicode whitespace at either edge, and makes
sure inner whitespace does not count.
*/
func TestHasEdgeSpace(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"abc", false},
		{"a b", false},
		{" abc", true},
		{"abc ", true},
		{"\tabc", true},
		{"abc\n", true},
		{nbspace + "abc", true},
		{"abc" + nbspace, true},
		{"\u2003abc", true}, // em space
		{"čau", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasEdgeSpace(tt.in), "HasEdgeSpace(%q)", tt.in)
	}
}

func TestHasNewline(t *testing.T) {
	assert.True(t, HasNewline("a\nb"))
	assert.True(t, HasNewline("a\rb"))
	assert.False(t, HasNewline("a b"))
}

/*
TestNormalize checks trim, whitespace collapsing and Unicode case folding,
including the spellings the canonical country map depends on.
*/
func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Turkey", "turkey"},
		{"Turkey ", "turkey"},
		{"  TURKEY", "turkey"},
		{"turkye", "turkye"},
		{"New   York", "new york"},
		{"New\t\nYork", "new york"},
		{"Straße", "strasse"},
		{"TÜRKIYE", "türkiye"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestTrimAndIsASCII(t *testing.T) {
	assert.Equal(t, "abc", Trim(" abc\t"))
	assert.Equal(t, "abc", Trim("abc"))
	assert.Equal(t, "abc", Trim(nbspace+"abc"))

	assert.True(t, IsASCII("user@example.com"))
	assert.False(t, IsASCII("jürgen@example.com"))
}
