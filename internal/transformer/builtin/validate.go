package builtin

import (
	"regexp"
	"time"
	"unicode"

	"txnetl/internal/schema"
	"txnetl/pkg/records"
)

// VerdictKind classifies the outcome of validating one field.
type VerdictKind uint8

const (
	Ok VerdictKind = iota
	Missing
	ParseFailure
	RangeViolation
	PatternViolation
	EncodingViolation
)

func (k VerdictKind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Missing:
		return "missing"
	case ParseFailure:
		return "parse_failure"
	case RangeViolation:
		return "range_violation"
	case PatternViolation:
		return "pattern_violation"
	case EncodingViolation:
		return "encoding_violation"
	}
	return "unknown"
}

// Verdict is the result of validating one field of one record. Reason is a
// short constant description for range and pattern violations.
type Verdict struct {
	Kind   VerdictKind
	Reason string
}

// Failed reports whether the verdict is a validation error. Missing is not an
// error: every field of the contract is optional.
func (v Verdict) Failed() bool { return v.Kind >= ParseFailure }

var (
	verdictOK      = Verdict{Kind: Ok}
	verdictMissing = Verdict{Kind: Missing}
)

// Range-violation reasons.
const (
	ReasonNegative   = "negative"
	ReasonOutOfRange = "out of range"
)

// ReasonUnread marks a cell that a malformed row never reached.
const ReasonUnread = "not read: row ended in a parse error"

// Unread is the verdict of every validated cell past the point where a
// malformed row stopped parsing.
var Unread = Verdict{Kind: ParseFailure, Reason: ReasonUnread}

// emailRe is the general local@domain.tld grammar.
var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ISODateLayout is the only accepted order_date layout.
const ISODateLayout = "2006-01-02"

// minPhoneDigits is the minimum digit count of a plausible phone number.
const minPhoneDigits = 7

// ValidateEmail checks a non-missing email: non-ASCII input is an encoding
// violation, otherwise it must match the email grammar.
func ValidateEmail(v records.Value) Verdict {
	if IsMissing(v) {
		return verdictMissing
	}
	s := Trim(v.S)
	if !IsASCII(s) {
		return Verdict{Kind: EncodingViolation, Reason: "non-ASCII email"}
	}
	if !emailRe.MatchString(s) {
		return Verdict{Kind: PatternViolation, Reason: "expected local@domain.tld"}
	}
	return verdictOK
}

// ValidatePhone accepts any formatting as long as at least seven decimal
// digits remain once everything else is stripped.
func ValidatePhone(v records.Value) Verdict {
	if IsMissing(v) {
		return verdictMissing
	}
	digits := 0
	for _, r := range v.S {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < minPhoneDigits {
		return Verdict{Kind: PatternViolation, Reason: "fewer than 7 digits"}
	}
	return verdictOK
}

// ValidateTransactionID expects TXN followed by exactly ten digits.
func ValidateTransactionID(v records.Value) Verdict {
	return prefixedDigits(v, "TXN", 10, "expected TXN##########")
}

// ValidateCustomerID expects CUST followed by exactly five digits.
func ValidateCustomerID(v records.Value) Verdict {
	return prefixedDigits(v, "CUST", 5, "expected CUST#####")
}

func prefixedDigits(v records.Value, prefix string, n int, reason string) Verdict {
	if IsMissing(v) {
		return verdictMissing
	}
	s := Trim(v.S)
	if len(s) != len(prefix)+n || s[:len(prefix)] != prefix {
		return Verdict{Kind: PatternViolation, Reason: reason}
	}
	for i := len(prefix); i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Verdict{Kind: PatternViolation, Reason: reason}
		}
	}
	return verdictOK
}

// ValidateProductCode expects exactly eight characters from A-Z and 0-9.
func ValidateProductCode(v records.Value) Verdict {
	if IsMissing(v) {
		return verdictMissing
	}
	s := Trim(v.S)
	bad := Verdict{Kind: PatternViolation, Reason: "expected 8 chars A-Z0-9"}
	if len(s) != 8 {
		return bad
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return bad
		}
	}
	return verdictOK
}

// ValidateDate parses an ISO calendar date. The parsed date is returned only
// with an Ok verdict.
func ValidateDate(v records.Value) (Verdict, time.Time) {
	if IsMissing(v) {
		return verdictMissing, time.Time{}
	}
	t, err := time.Parse(ISODateLayout, Trim(v.S))
	if err != nil {
		return Verdict{Kind: ParseFailure, Reason: "expected YYYY-MM-DD"}, time.Time{}
	}
	return verdictOK, t
}

// Check validates v against the rule declared for f. Fields without a rule
// are always Ok (or Missing).
func Check(f schema.Field, v records.Value) Verdict {
	switch f.Rule {
	case schema.RuleEmail:
		return ValidateEmail(v)
	case schema.RulePhone:
		return ValidatePhone(v)
	case schema.RuleTransactionID:
		return ValidateTransactionID(v)
	case schema.RuleCustomerID:
		return ValidateCustomerID(v)
	case schema.RuleProductCode:
		return ValidateProductCode(v)
	case schema.RuleISODate:
		verdict, _ := ValidateDate(v)
		return verdict
	case schema.RuleNonNegative, schema.RulePercent, schema.RuleRating:
		verdict, _ := CheckNumber(f.Rule, v)
		return verdict
	}
	if IsMissing(v) {
		return verdictMissing
	}
	return verdictOK
}
