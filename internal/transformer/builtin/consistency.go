package builtin

import (
	"math"

	"txnetl/internal/schema"
	"txnetl/pkg/records"
)

// DefaultTotalTolerance is the absolute currency tolerance between a recorded
// total_amount and the total recomputed from its inputs.
const DefaultTotalTolerance = 0.05

// ConsistencyResult is the outcome of the total_amount cross-field check.
type ConsistencyResult uint8

const (
	// ConsistencySkipped means at least one input was missing or unparseable;
	// the row is neither checked nor mismatched.
	ConsistencySkipped ConsistencyResult = iota
	ConsistencyOK
	ConsistencyMismatch
)

// Consistency recomputes total_amount from quantity, unit_price,
// discount_percent and tax_rate.
type Consistency struct {
	Tolerance float64
}

// NewConsistency returns a checker; a non-positive tolerance selects
// DefaultTotalTolerance.
func NewConsistency(tolerance float64) Consistency {
	if tolerance <= 0 {
		tolerance = DefaultTotalTolerance
	}
	return Consistency{Tolerance: tolerance}
}

// Expected returns q*u*(1-d/100)*(1+t/100).
func Expected(q, u, d, t float64) float64 {
	return q * u * (1 - d/100) * (1 + t/100)
}

// Check compares the recorded total with the expected one. Range violations
// of the inputs do not skip the check; only missing or unparseable ones do.
func (c Consistency) Check(q, u, d, t, total NumberResult) ConsistencyResult {
	if !q.OK() || !u.OK() || !d.OK() || !t.OK() || !total.OK() {
		return ConsistencySkipped
	}
	if math.Abs(total.F-Expected(q.F, u.F, d.F, t.F)) > c.Tolerance {
		return ConsistencyMismatch
	}
	return ConsistencyOK
}

// CheckRecord parses the five inputs from r and runs Check.
func (c Consistency) CheckRecord(r records.Record) ConsistencyResult {
	return c.Check(
		ParseNumber(r.Get(schema.ColQuantity)),
		ParseNumber(r.Get(schema.ColUnitPrice)),
		ParseNumber(r.Get(schema.ColDiscountPercent)),
		ParseNumber(r.Get(schema.ColTaxRate)),
		ParseNumber(r.Get(schema.ColTotalAmount)),
	)
}
