// Package schema declares the fixed transactional dataset contract: every known
// column, its kind, and the validation rule that applies to it. The contract is
// built once and never mutated; validators, the classifier and the quality
// aggregator all consult it instead of switching on column-name strings.
package schema

import (
	"math"
	"strings"
	"sync"
)

// Kind groups columns by how they are treated.
type Kind string

const (
	KindIdentifier  Kind = "identifier"
	KindCategorical Kind = "categorical"
	KindNumeric     Kind = "numeric"
	KindText        Kind = "text"
	KindDate        Kind = "date"
	KindFlag        Kind = "flag"
)

// Rule selects the validator for a column. RuleNone columns are carried
// through and profiled (missingness, whitespace) but never rejected.
type Rule uint8

const (
	RuleNone Rule = iota
	RuleEmail
	RulePhone
	RuleTransactionID
	RuleCustomerID
	RuleProductCode
	RuleISODate
	RuleNonNegative // numeric, >= 0
	RulePercent     // numeric, [0,100]
	RuleRating      // numeric, [0,5]
)

// IsPattern reports whether r is a string-pattern rule.
func (r Rule) IsPattern() bool {
	switch r {
	case RuleEmail, RulePhone, RuleTransactionID, RuleCustomerID, RuleProductCode:
		return true
	}
	return false
}

// IsNumeric reports whether r is a numeric range rule.
func (r Rule) IsNumeric() bool {
	return r == RuleNonNegative || r == RulePercent || r == RuleRating
}

// Bounds returns the inclusive valid range of a numeric rule.
func (r Rule) Bounds() (lo, hi float64) {
	switch r {
	case RulePercent:
		return 0, 100
	case RuleRating:
		return 0, 5
	case RuleNonNegative:
		return 0, math.Inf(1)
	}
	return math.Inf(-1), math.Inf(1)
}

// Field is a single column declaration.
type Field struct {
	Name string
	Kind Kind
	Rule Rule
}

// Code is the stable error code emitted when the field fails its rule, e.g.
// INVALID_EMAIL. Fields without a rule have no code.
func (f Field) Code() string {
	if f.Rule == RuleNone {
		return ""
	}
	return "INVALID_" + strings.ToUpper(f.Name)
}

// Column names referenced directly by the cross-field checker and the
// clean-mode writers.
const (
	ColTransactionID   = "transaction_id"
	ColCustomerID      = "customer_id"
	ColProductCode     = "product_code"
	ColSalesRepID      = "sales_rep_id"
	ColCountry         = "country"
	ColDepartment      = "department"
	ColRegionCode      = "region_code"
	ColQuantity        = "quantity"
	ColUnitPrice       = "unit_price"
	ColDiscountPercent = "discount_percent"
	ColTaxRate         = "tax_rate"
	ColLoyaltyPoints   = "loyalty_points"
	ColRating          = "rating"
	ColTotalAmount     = "total_amount"
	ColEmail           = "email"
	ColPhone           = "phone"
	ColOrderDate       = "order_date"

	// RejectReasonColumn is appended to the reject output.
	RejectReasonColumn = "reject_reason"

	// CodeTotalAmountMismatch flags a failed cross-field consistency check.
	CodeTotalAmountMismatch = "TOTAL_AMOUNT_MISMATCH"
)

// Contract is an ordered, indexed set of fields.
type Contract struct {
	Name   string
	Fields []Field

	index map[string]int
}

// NewContract indexes fields by name. Field order is significant: it is the
// order in which error codes are reported.
func NewContract(name string, fields []Field) *Contract {
	c := &Contract{Name: name, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		c.index[f.Name] = i
	}
	return c
}

// Field returns the declaration for name.
func (c *Contract) Field(name string) (Field, bool) {
	i, ok := c.index[name]
	if !ok {
		return Field{}, false
	}
	return c.Fields[i], true
}

// Names returns column names in contract order.
func (c *Contract) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// OfKind returns the fields of kind k in contract order.
func (c *Contract) OfKind(k Kind) []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

// Validated returns the fields that carry a rule, in contract order.
func (c *Contract) Validated() []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Rule != RuleNone {
			out = append(out, f)
		}
	}
	return out
}

// Codes lists every error code the contract can produce, in report order.
func (c *Contract) Codes() []string {
	var out []string
	for _, f := range c.Validated() {
		out = append(out, f.Code())
	}
	return append(out, CodeTotalAmountMismatch)
}

var (
	txOnce     sync.Once
	txContract *Contract
)

// Transactions returns the fixed contract of the transactional dataset.
func Transactions() *Contract {
	txOnce.Do(func() {
		txContract = NewContract("transactions", []Field{
			{Name: ColTransactionID, Kind: KindIdentifier, Rule: RuleTransactionID},
			{Name: ColCustomerID, Kind: KindIdentifier, Rule: RuleCustomerID},
			{Name: ColProductCode, Kind: KindIdentifier, Rule: RuleProductCode},
			{Name: ColSalesRepID, Kind: KindIdentifier},

			{Name: ColCountry, Kind: KindCategorical},
			{Name: "city", Kind: KindCategorical},
			{Name: ColDepartment, Kind: KindCategorical},
			{Name: "category", Kind: KindCategorical},
			{Name: "payment_method", Kind: KindCategorical},
			{Name: "status", Kind: KindCategorical},
			{Name: "tier", Kind: KindCategorical},
			{Name: ColRegionCode, Kind: KindCategorical},

			{Name: ColQuantity, Kind: KindNumeric, Rule: RuleNonNegative},
			{Name: ColUnitPrice, Kind: KindNumeric, Rule: RuleNonNegative},
			{Name: ColDiscountPercent, Kind: KindNumeric, Rule: RulePercent},
			{Name: ColTaxRate, Kind: KindNumeric, Rule: RulePercent},
			{Name: ColLoyaltyPoints, Kind: KindNumeric, Rule: RuleNonNegative},
			{Name: ColRating, Kind: KindNumeric, Rule: RuleRating},
			{Name: ColTotalAmount, Kind: KindNumeric, Rule: RuleNonNegative},

			{Name: "customer_name", Kind: KindText},
			{Name: "product_name", Kind: KindText},
			{Name: ColEmail, Kind: KindText, Rule: RuleEmail},
			{Name: ColPhone, Kind: KindText, Rule: RulePhone},
			{Name: "postal_code", Kind: KindText},

			{Name: ColOrderDate, Kind: KindDate, Rule: RuleISODate},

			{Name: "is_returning_customer", Kind: KindFlag},
		})
	})
	return txContract
}
