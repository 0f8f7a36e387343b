// Package builtin contains the per-field building blocks of the pipeline:
// text normalization, the missing-value rule, pattern/numeric/date validators,
// the cross-field consistency checker, and record transformers (canonical
// mapping, missing-value fills).
package builtin

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"txnetl/pkg/records"
)

// casers pools Unicode case folders; a cases.Caser keeps internal state and
// must not be shared between goroutines.
var casers = sync.Pool{New: func() any { c := cases.Fold(); return &c }}

// IsMissing is the single missing-value rule used by every validator and by
// the quality aggregator: a value is missing iff it is null or empty after
// trimming Unicode whitespace.
func IsMissing(v records.Value) bool {
	if !v.Valid || v.S == "" {
		return true
	}
	if !HasEdgeSpace(v.S) {
		return false
	}
	return isBlank(v.S)
}

// isBlank reports whether s consists only of whitespace.
func isBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// HasEdgeSpace reports whether s starts or ends with Unicode whitespace. It is
// cheaper than comparing s with strings.TrimSpace(s) on the hot path.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	if c := s[0]; c < utf8.RuneSelf {
		if asciiSpace(c) {
			return true
		}
	} else if r, _ := utf8.DecodeRuneInString(s); unicode.IsSpace(r) {
		return true
	}
	if c := s[len(s)-1]; c < utf8.RuneSelf {
		return asciiSpace(c)
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func asciiSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// HasNewline reports an embedded CR or LF anywhere in s.
func HasNewline(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// Trim returns s without leading/trailing Unicode whitespace.
func Trim(s string) string {
	if !HasEdgeSpace(s) {
		return s
	}
	return strings.TrimSpace(s)
}

// Normalize folds s into the key used for collision detection and canonical
// lookups: trim, collapse inner whitespace runs to one space, case-fold.
func Normalize(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	c := casers.Get().(*cases.Caser)
	out := c.String(collapsed)
	casers.Put(c)
	return out
}

// IsASCII reports whether s contains only 7-bit bytes.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
