package quality

import (
	"sort"

	"txnetl/internal/schema"
	"txnetl/internal/transformer/builtin"
)

// Section sizes of the report.
const (
	DefaultTopMissing      = 15
	DefaultTopDefects      = 10
	DefaultTopCollisions   = 10
	DefaultSpellingsShown  = 8
	DefaultTopK            = 25
	DefaultDisplayMaxRunes = 60
)

// ReportOptions sizes the ranked sections. Zero fields take the defaults.
type ReportOptions struct {
	TopK           int
	TopMissing     int
	TopDefects     int
	TopCollisions  int
	SpellingsShown int
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.TopMissing <= 0 {
		o.TopMissing = DefaultTopMissing
	}
	if o.TopDefects <= 0 {
		o.TopDefects = DefaultTopDefects
	}
	if o.TopCollisions <= 0 {
		o.TopCollisions = DefaultTopCollisions
	}
	if o.SpellingsShown <= 0 {
		o.SpellingsShown = DefaultSpellingsShown
	}
	return o
}

// ColumnCount is a per-column count with its share of analyzed rows.
type ColumnCount struct {
	Column  string  `json:"column"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// PatternLine summarizes one pattern-validated column.
type PatternLine struct {
	Column     string   `json:"column"`
	Code       string   `json:"code"`
	Rule       string   `json:"rule"`
	Invalid    int64    `json:"invalid"`
	Encoding   int64    `json:"encoding,omitempty"`
	Structural int64    `json:"structural,omitempty"`
	Examples   []string `json:"examples,omitempty"`
}

// NumericLine summarizes one numeric column.
type NumericLine struct {
	Column     string   `json:"column"`
	Missing    int64    `json:"missing"`
	ParseFail  int64    `json:"parse_fail"`
	Negative   int64    `json:"negative"`
	OutOfRange int64    `json:"out_of_range"`
	Examples   []string `json:"examples,omitempty"`
}

// ConsistencyLine summarizes the total_amount cross-field check.
type ConsistencyLine struct {
	Checked    int64   `json:"checked"`
	Mismatched int64   `json:"mismatched"`
	Percent    float64 `json:"percent"`
	Tolerance  float64 `json:"tolerance"`
}

// DateLine summarizes order_date parsing. Min and Max are empty when no
// valid date was seen.
type DateLine struct {
	Column   string   `json:"column"`
	Invalid  int64    `json:"invalid"`
	Min      string   `json:"min,omitempty"`
	Max      string   `json:"max,omitempty"`
	Examples []string `json:"examples,omitempty"`
}

// Collision is one normalized key observed under several raw spellings.
// Spellings is sorted and cut to the configured length; Distinct is the
// full number of spellings.
type Collision struct {
	Key       string   `json:"key"`
	Distinct  int      `json:"distinct"`
	Spellings []string `json:"spellings"`
	Truncated bool     `json:"truncated,omitempty"`
}

// ColumnCollisions lists the collisions of one categorical column. Total is
// the number of colliding keys before truncation.
type ColumnCollisions struct {
	Column     string      `json:"column"`
	Total      int         `json:"total"`
	Collisions []Collision `json:"collisions"`
}

// ValueCount is a value with its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ColumnValues lists the most frequent raw values of one categorical column.
type ColumnValues struct {
	Column string       `json:"column"`
	Values []ValueCount `json:"values"`
}

// Report is the rendered-independent form of a merged Stats.
type Report struct {
	Rows             int64              `json:"rows"`
	UnparseableLines int64              `json:"unparseable_lines"`
	Clean            int64              `json:"clean"`
	Rejected         int64              `json:"rejected"`
	Codes            []ValueCount       `json:"codes"`
	Missing          []ColumnCount      `json:"missing"`
	Whitespace       []ColumnCount      `json:"whitespace"`
	Newline          []ColumnCount      `json:"newline"`
	Patterns         []PatternLine      `json:"patterns"`
	Numeric          []NumericLine      `json:"numeric"`
	Consistency      ConsistencyLine    `json:"consistency"`
	Dates            DateLine           `json:"dates"`
	Collisions       []ColumnCollisions `json:"collisions"`
	TopValues        []ColumnValues     `json:"top_values"`
}

// Report derives the report from s. It depends only on the merged contents of
// s, never on how they were chunked.
func (s *Stats) Report(contract *schema.Contract, tolerance float64, opts ReportOptions) Report {
	opts = opts.withDefaults()
	r := Report{
		Rows:       s.Rows,
		Clean:      s.Clean,
		Rejected:   s.Rejected,
		Codes:      codeCounts(contract, s.Codes),
		Missing:    topColumns(s.Missing, s.Rows, opts.TopMissing),
		Whitespace: topColumns(s.Whitespace, s.Rows, opts.TopDefects),
		Newline:    topColumns(s.Newline, s.Rows, opts.TopDefects),
		Consistency: ConsistencyLine{
			Checked:    s.Checked,
			Mismatched: s.Mismatched,
			Percent:    percent(s.Mismatched, s.Checked),
			Tolerance:  tolerance,
		},
	}

	for _, f := range contract.Validated() {
		switch {
		case f.Rule.IsPattern():
			line := PatternLine{Column: f.Name, Code: f.Code(), Rule: patternRule(f.Rule)}
			if p, ok := s.Patterns[f.Name]; ok {
				line.Invalid = p.Invalid
				line.Encoding = p.Encoding
				line.Structural = p.Structural
				line.Examples = p.Examples.Values()
			}
			r.Patterns = append(r.Patterns, line)
		case f.Rule.IsNumeric():
			n, ok := s.Numeric[f.Name]
			if !ok || n.Missing+n.ParseFail+n.Negative+n.OutOfRange == 0 {
				continue
			}
			r.Numeric = append(r.Numeric, NumericLine{
				Column:     f.Name,
				Missing:    n.Missing,
				ParseFail:  n.ParseFail,
				Negative:   n.Negative,
				OutOfRange: n.OutOfRange,
				Examples:   n.Examples.Values(),
			})
		case f.Rule == schema.RuleISODate:
			r.Dates = DateLine{Column: f.Name, Invalid: s.DateInvalid, Examples: s.DateExamples.Values()}
			if s.DateSeen {
				r.Dates.Min = s.DateMin.Format(builtin.ISODateLayout)
				r.Dates.Max = s.DateMax.Format(builtin.ISODateLayout)
			}
		}
	}

	for _, f := range contract.OfKind(schema.KindCategorical) {
		if cc, ok := collisions(f.Name, s.Spellings[f.Name], opts); ok {
			r.Collisions = append(r.Collisions, cc)
		}
		if freq, ok := s.Freq[f.Name]; ok {
			r.TopValues = append(r.TopValues, ColumnValues{Column: f.Name, Values: topValues(freq, opts.TopK)})
		}
	}
	return r
}

func patternRule(r schema.Rule) string {
	switch r {
	case schema.RuleEmail:
		return "local@domain.tld"
	case schema.RulePhone:
		return ">= 7 digits"
	case schema.RuleTransactionID:
		return "TXN##########"
	case schema.RuleCustomerID:
		return "CUST#####"
	case schema.RuleProductCode:
		return "8 chars A-Z0-9"
	}
	return ""
}

func percent(n, of int64) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// topColumns ranks non-zero counts descending, ties by column name.
func topColumns(m map[string]int64, rows int64, limit int) []ColumnCount {
	out := make([]ColumnCount, 0, len(m))
	for col, n := range m {
		if n > 0 {
			out = append(out, ColumnCount{Column: col, Count: n, Percent: percent(n, rows)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Column < out[j].Column
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// topValues ranks values by count descending, ties by value.
func topValues(m map[string]int64, limit int) []ValueCount {
	out := make([]ValueCount, 0, len(m))
	for v, n := range m {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// codeCounts lists non-zero reject codes in contract order.
func codeCounts(contract *schema.Contract, m map[string]int64) []ValueCount {
	var out []ValueCount
	for _, code := range contract.Codes() {
		if n := m[code]; n > 0 {
			out = append(out, ValueCount{Value: code, Count: n})
		}
	}
	return out
}

// collisions lists keys with more than one raw spelling, largest first, ties
// by key.
func collisions(col string, sp map[string]map[string]struct{}, opts ReportOptions) (ColumnCollisions, bool) {
	var all []Collision
	for key, set := range sp {
		if len(set) < 2 {
			continue
		}
		raws := make([]string, 0, len(set))
		for raw := range set {
			raws = append(raws, raw)
		}
		sort.Strings(raws)
		c := Collision{Key: key, Distinct: len(raws), Spellings: raws}
		if len(raws) > opts.SpellingsShown {
			c.Spellings = raws[:opts.SpellingsShown]
			c.Truncated = true
		}
		all = append(all, c)
	}
	if len(all) == 0 {
		return ColumnCollisions{}, false
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distinct != all[j].Distinct {
			return all[i].Distinct > all[j].Distinct
		}
		return all[i].Key < all[j].Key
	})
	cc := ColumnCollisions{Column: col, Total: len(all), Collisions: all}
	if len(all) > opts.TopCollisions {
		cc.Collisions = all[:opts.TopCollisions]
	}
	return cc, true
}

// Truncate shortens s for display to at most max runes, marking the cut
// with "...".
func Truncate(s string, max int) string {
	if max <= 3 {
		max = DefaultDisplayMaxRunes
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max-3]) + "..."
}
