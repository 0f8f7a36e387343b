package transformer

import (
	"time"

	"txnetl/internal/bitmap"
	"txnetl/internal/schema"
	"txnetl/internal/transformer/builtin"
	"txnetl/pkg/records"
)

// Classifier turns records into ordered error-code lists. It offers a scalar
// path (Classify, one record at a time) and a columnar path (EvaluateBatch,
// one field across a whole chunk at a time). Both paths must agree on every
// record; classify_test.go holds them to that.
type Classifier struct {
	contract    *schema.Contract
	fields      []schema.Field
	consistency builtin.Consistency
}

// NewClassifier builds a classifier over the validated fields of contract.
func NewClassifier(contract *schema.Contract, tolerance float64) *Classifier {
	return &Classifier{
		contract:    contract,
		fields:      contract.Validated(),
		consistency: builtin.NewConsistency(tolerance),
	}
}

// Contract returns the contract the classifier validates against.
func (c *Classifier) Contract() *schema.Contract { return c.contract }

// Tolerance returns the cross-field tolerance in use.
func (c *Classifier) Tolerance() float64 { return c.consistency.Tolerance }

// Classify validates a single record. Codes come in contract order followed by
// TOTAL_AMOUNT_MISMATCH; a nil result means the record is clean. Cells a
// malformed record never reached fail their field.
func (c *Classifier) Classify(r records.Record) []string {
	var codes []string
	for _, f := range c.fields {
		if r.Unread(f.Name) || builtin.Check(f, r.Get(f.Name)).Failed() {
			codes = append(codes, f.Code())
		}
	}
	if c.consistency.CheckRecord(r) == builtin.ConsistencyMismatch {
		codes = append(codes, schema.CodeTotalAmountMismatch)
	}
	return codes
}

// BatchResult holds the columnar evaluation of one chunk. Slices indexed by
// row are aligned with the records passed to EvaluateBatch.
type BatchResult struct {
	Rows   int
	Fields []schema.Field

	// Verdicts[f][i] is the verdict of Fields[f] for row i.
	Verdicts [][]builtin.Verdict
	// Fail[f] marks the rows failing Fields[f].
	Fail []*bitmap.Bitmap

	// Numbers holds parse results for every numeric field, by column name.
	Numbers map[string][]builtin.NumberResult
	// Dates holds parsed order dates; zero where the verdict is not Ok.
	Dates []time.Time

	Consistency []builtin.ConsistencyResult
	Mismatch    *bitmap.Bitmap

	// Rejected is the union of every failure mask.
	Rejected *bitmap.Bitmap

	index map[string]int
}

// FieldIndex returns the position of name in Fields, or -1.
func (b *BatchResult) FieldIndex(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	return -1
}

// Codes assembles the error codes of row i from the failure masks.
func (b *BatchResult) Codes(i int) []string {
	if !b.Rejected.Has(i) {
		return nil
	}
	var codes []string
	for f, m := range b.Fail {
		if m.Has(i) {
			codes = append(codes, b.Fields[f].Code())
		}
	}
	if b.Mismatch.Has(i) {
		codes = append(codes, schema.CodeTotalAmountMismatch)
	}
	return codes
}

// Clean reports whether row i passed every check.
func (b *BatchResult) Clean(i int) bool { return !b.Rejected.Has(i) }

// EvaluateBatch validates recs one field at a time and combines the per-field
// failure masks into row verdicts.
func (c *Classifier) EvaluateBatch(recs []records.Record) *BatchResult {
	n := len(recs)
	b := &BatchResult{
		Rows:        n,
		Fields:      c.fields,
		Verdicts:    make([][]builtin.Verdict, len(c.fields)),
		Fail:        make([]*bitmap.Bitmap, len(c.fields)),
		Numbers:     make(map[string][]builtin.NumberResult),
		Consistency: make([]builtin.ConsistencyResult, n),
		Mismatch:    bitmap.New(n),
		Rejected:    bitmap.New(n),
		index:       make(map[string]int, len(c.fields)),
	}

	for fi, f := range c.fields {
		b.index[f.Name] = fi
		col := column(recs, f.Name)
		verdicts := make([]builtin.Verdict, n)
		fail := bitmap.New(n)

		switch {
		case f.Rule.IsNumeric():
			nums := make([]builtin.NumberResult, n)
			for i, v := range col {
				verdicts[i], nums[i] = builtin.CheckNumber(f.Rule, v)
			}
			b.Numbers[f.Name] = nums
		case f.Rule == schema.RuleISODate:
			dates := make([]time.Time, n)
			for i, v := range col {
				verdicts[i], dates[i] = builtin.ValidateDate(v)
			}
			b.Dates = dates
		default:
			for i, v := range col {
				verdicts[i] = builtin.Check(f, v)
			}
		}

		for i := range verdicts {
			if recs[i].Unread(f.Name) {
				verdicts[i] = builtin.Unread
			}
			if verdicts[i].Failed() {
				fail.Add(i)
			}
		}
		b.Verdicts[fi] = verdicts
		b.Fail[fi] = fail
		b.Rejected.Or(fail)
	}

	q := c.numbers(b, recs, schema.ColQuantity)
	u := c.numbers(b, recs, schema.ColUnitPrice)
	d := c.numbers(b, recs, schema.ColDiscountPercent)
	t := c.numbers(b, recs, schema.ColTaxRate)
	total := c.numbers(b, recs, schema.ColTotalAmount)
	for i := 0; i < n; i++ {
		res := c.consistency.Check(q[i], u[i], d[i], t[i], total[i])
		b.Consistency[i] = res
		if res == builtin.ConsistencyMismatch {
			b.Mismatch.Add(i)
		}
	}
	b.Rejected.Or(b.Mismatch)
	return b
}

// ClassifyBatch returns the codes of every record, aligned with recs.
func (c *Classifier) ClassifyBatch(recs []records.Record) [][]string {
	b := c.EvaluateBatch(recs)
	out := make([][]string, len(recs))
	for i := range recs {
		out[i] = b.Codes(i)
	}
	return out
}

// numbers returns the parse results for a consistency input, reusing the
// column already evaluated when the contract validates it.
func (c *Classifier) numbers(b *BatchResult, recs []records.Record, name string) []builtin.NumberResult {
	if nums, ok := b.Numbers[name]; ok {
		return nums
	}
	col := column(recs, name)
	nums := make([]builtin.NumberResult, len(col))
	for i, v := range col {
		nums[i] = builtin.ParseNumber(v)
	}
	return nums
}

// column extracts one column of a chunk. Records of a chunk normally share a
// header, so the position is resolved once.
func column(recs []records.Record, name string) []records.Value {
	out := make([]records.Value, len(recs))
	if len(recs) == 0 {
		return out
	}
	h := recs[0].Header
	ix := h.Index(name)
	for i, r := range recs {
		if r.Header == h {
			out[i] = r.At(ix)
		} else {
			out[i] = r.Get(name)
		}
	}
	return out
}
