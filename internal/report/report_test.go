package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txnetl/internal/quality"
	"txnetl/internal/storage"
)

func sampleReport() quality.Report {
	return quality.Report{
		Rows:             12345,
		UnparseableLines: 2,
		Clean:            12000,
		Rejected:         345,
		Codes:            []quality.ValueCount{{Value: "INVALID_EMAIL", Count: 300}, {Value: "TOTAL_AMOUNT_MISMATCH", Count: 45}},
		Missing:          []quality.ColumnCount{{Column: "region_code", Count: 1234, Percent: 10}},
		Patterns: []quality.PatternLine{{
			Column: "email", Code: "INVALID_EMAIL", Rule: "local@domain.tld",
			Invalid: 300, Encoding: 10, Structural: 290,
			Examples: []string{"bad\nmail", "nobody"},
		}},
		Numeric: []quality.NumericLine{{Column: "rating", ParseFail: 3, Examples: []string{"five"}}},
		Consistency: quality.ConsistencyLine{
			Checked: 12000, Mismatched: 45, Percent: 0.4, Tolerance: 0.05,
		},
		Dates: quality.DateLine{Column: "order_date", Invalid: 1, Min: "2024-01-01", Max: "2024-12-31"},
		Collisions: []quality.ColumnCollisions{{
			Column: "country", Total: 11,
			Collisions: []quality.Collision{{Key: "turkey", Distinct: 3, Spellings: []string{" turkey", "Turkey", "turkey"}}},
		}},
		TopValues: []quality.ColumnValues{{
			Column: "country",
			Values: []quality.ValueCount{{Value: strings.Repeat("x", 80), Count: 7}},
		}},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"Summary",
		"12,345",
		"INVALID_EMAIL",
		"Missing values",
		"1,234",
		"Example invalid values",
		`"bad\\nmail"`,
		`"five"`,
		"tolerance 0.05",
		"0.40",
		"2024-01-01",
		"Collisions: country",
		"11 colliding keys, showing 1",
		"Top values: country",
		strings.Repeat("x", 57) + "...",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, strings.Repeat("x", 58))
	assert.Contains(t, out, "Embedded newlines\n=================\n(none)")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "## Summary\n\n|")
	assert.Contains(t, out, "## Reject codes")
	assert.Contains(t, out, "| INVALID_EMAIL |")
	assert.NotContains(t, out, "====")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	rep := sampleReport()
	require.NoError(t, Write(&buf, FormatJSON, rep))

	var got quality.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rep, got)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "yaml", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"yaml"`)
}

func TestWriteEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, quality.Report{}))
	assert.Contains(t, buf.String(), "Reject codes\n============\n(none)")
	assert.Contains(t, buf.String(), "Dates\n=====\n(none)")
}

func TestWriteRejectReasons(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRejectReasons(&buf, 2000, []storage.CodeCount{
		{Code: "INVALID_QUANTITY", Count: 1500},
		{Code: "INVALID_EMAIL", Count: 20},
	}))
	out := buf.String()
	assert.Contains(t, out, "Top rejection reasons")
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "75.00")
	assert.Less(t, strings.Index(out, "INVALID_QUANTITY"), strings.Index(out, "INVALID_EMAIL"))
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\nb", `a\nb`},
		{"tab\there", `tab\there`},
		{strings.Repeat("é", 61), strings.Repeat("é", 57) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, display(tt.in))
		})
	}
}
