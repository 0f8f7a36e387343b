// Package quality accumulates data-quality statistics over chunks of records.
//
// A Stats value is filled from one or more chunks (Observe) and combined with
// other Stats values (Merge). Every statistic is a sum, a set union, a min/max
// or a bounded list ordered by input row, so the merge is associative and
// commutative: the report is the same for any chunk size, any number of
// workers and any merge order.
package quality

import (
	"sort"
	"time"

	"txnetl/internal/schema"
	"txnetl/internal/transformer"
	"txnetl/internal/transformer/builtin"
	"txnetl/pkg/records"
)

// ExampleCap bounds every example list.
const ExampleCap = 10

// Example is one offending raw value and the input row it came from.
type Example struct {
	Row   int64  `json:"row"`
	Value string `json:"value"`
}

// Examples holds at most ExampleCap entries with the lowest row ordinals,
// sorted by row.
type Examples []Example

func (e *Examples) add(row int64, value string) {
	l := *e
	if len(l) == ExampleCap && row > l[len(l)-1].Row {
		return
	}
	i := sort.Search(len(l), func(i int) bool { return l[i].Row >= row })
	l = append(l, Example{})
	copy(l[i+1:], l[i:])
	l[i] = Example{Row: row, Value: value}
	if len(l) > ExampleCap {
		l = l[:ExampleCap]
	}
	*e = l
}

func (e *Examples) merge(o Examples) {
	for _, x := range o {
		e.add(x.Row, x.Value)
	}
}

// Values returns the example values in row order.
func (e Examples) Values() []string {
	out := make([]string, len(e))
	for i, x := range e {
		out[i] = x.Value
	}
	return out
}

// PatternCounts tracks one pattern-validated column. Encoding and Structural
// split Invalid for email; for other columns every failure is structural.
type PatternCounts struct {
	Invalid    int64
	Encoding   int64
	Structural int64
	Examples   Examples
}

// NumericCounts tracks one numeric column.
type NumericCounts struct {
	Missing    int64
	ParseFail  int64
	Negative   int64
	OutOfRange int64
	Examples   Examples // parse failures
}

// Stats is the chunk accumulator. The zero value is not usable; call New.
type Stats struct {
	Rows     int64
	Clean    int64
	Rejected int64
	Codes    map[string]int64

	// Per input column.
	Missing    map[string]int64
	Whitespace map[string]int64
	Newline    map[string]int64

	Patterns map[string]*PatternCounts
	Numeric  map[string]*NumericCounts

	Checked    int64
	Mismatched int64

	DateInvalid  int64
	DateExamples Examples
	// DateSeen is set once a valid date was observed; DateMin and DateMax
	// are meaningless until then. 0001-01-01 is a valid date.
	DateSeen bool
	DateMin  time.Time
	DateMax  time.Time

	// Freq counts raw categorical values (null counts as ""); Spellings maps
	// normalized value -> set of raw spellings.
	Freq      map[string]map[string]int64
	Spellings map[string]map[string]map[string]struct{}
}

// New returns an empty accumulator.
func New() *Stats {
	return &Stats{
		Codes:      map[string]int64{},
		Missing:    map[string]int64{},
		Whitespace: map[string]int64{},
		Newline:    map[string]int64{},
		Patterns:   map[string]*PatternCounts{},
		Numeric:    map[string]*NumericCounts{},
		Freq:       map[string]map[string]int64{},
		Spellings:  map[string]map[string]map[string]struct{}{},
	}
}

func (s *Stats) pattern(col string) *PatternCounts {
	p, ok := s.Patterns[col]
	if !ok {
		p = &PatternCounts{}
		s.Patterns[col] = p
	}
	return p
}

func (s *Stats) numeric(col string) *NumericCounts {
	n, ok := s.Numeric[col]
	if !ok {
		n = &NumericCounts{}
		s.Numeric[col] = n
	}
	return n
}

func (s *Stats) observeDate(d time.Time) {
	if !s.DateSeen {
		s.DateSeen, s.DateMin, s.DateMax = true, d, d
		return
	}
	if d.Before(s.DateMin) {
		s.DateMin = d
	}
	if d.After(s.DateMax) {
		s.DateMax = d
	}
}

// Observe folds one chunk into s. b must be the EvaluateBatch result of recs.
func (s *Stats) Observe(contract *schema.Contract, recs []records.Record, b *transformer.BatchResult) {
	if len(recs) == 0 {
		return
	}
	s.Rows += int64(len(recs))
	rejected := int64(b.Rejected.Count())
	s.Rejected += rejected
	s.Clean += int64(len(recs)) - rejected

	s.observeFormatting(recs)
	s.observeVerdicts(recs, b)

	for _, c := range b.Consistency {
		switch c {
		case builtin.ConsistencyOK:
			s.Checked++
		case builtin.ConsistencyMismatch:
			s.Checked++
			s.Mismatched++
		}
	}
	if n := b.Mismatch.Count(); n > 0 {
		s.Codes[schema.CodeTotalAmountMismatch] += int64(n)
	}

	for _, f := range contract.OfKind(schema.KindCategorical) {
		s.observeCategorical(recs, f.Name)
	}
}

// observeFormatting counts missing, edge-whitespace and newline defects on
// every column of the input.
func (s *Stats) observeFormatting(recs []records.Record) {
	h := recs[0].Header
	for ix, col := range h.Names() {
		var miss, ws, nl int64
		for _, r := range recs {
			v := r.At(ix)
			if r.Header != h {
				v = r.Get(col)
			}
			if builtin.IsMissing(v) {
				miss++
			}
			if !v.Valid {
				continue
			}
			if builtin.HasEdgeSpace(v.S) {
				ws++
			}
			if builtin.HasNewline(v.S) {
				nl++
			}
		}
		if miss > 0 {
			s.Missing[col] += miss
		}
		if ws > 0 {
			s.Whitespace[col] += ws
		}
		if nl > 0 {
			s.Newline[col] += nl
		}
	}
}

func (s *Stats) observeVerdicts(recs []records.Record, b *transformer.BatchResult) {
	for fi, f := range b.Fields {
		verdicts := b.Verdicts[fi]
		if n := b.Fail[fi].Count(); n > 0 {
			s.Codes[f.Code()] += int64(n)
		}

		switch {
		case f.Rule.IsPattern():
			p := s.pattern(f.Name)
			for i, v := range verdicts {
				switch v.Kind {
				case builtin.EncodingViolation:
					p.Encoding++
				case builtin.PatternViolation:
					p.Structural++
				default:
					continue
				}
				p.Invalid++
				p.Examples.add(recs[i].Row, builtin.Trim(recs[i].Get(f.Name).S))
			}

		case f.Rule.IsNumeric():
			n := s.numeric(f.Name)
			for i, v := range verdicts {
				switch v.Kind {
				case builtin.Missing:
					n.Missing++
				case builtin.ParseFailure:
					n.ParseFail++
					if v.Reason != builtin.ReasonUnread {
						n.Examples.add(recs[i].Row, builtin.Trim(recs[i].Get(f.Name).S))
					}
				case builtin.RangeViolation:
					if v.Reason == builtin.ReasonNegative {
						n.Negative++
					} else {
						n.OutOfRange++
					}
				}
			}

		case f.Rule == schema.RuleISODate:
			for i, v := range verdicts {
				switch v.Kind {
				case builtin.Ok:
					s.observeDate(b.Dates[i])
				case builtin.ParseFailure:
					s.DateInvalid++
					if v.Reason != builtin.ReasonUnread {
						s.DateExamples.add(recs[i].Row, builtin.Trim(recs[i].Get(f.Name).S))
					}
				}
			}
		}
	}
}

// observeCategorical updates the raw frequency table and the spelling sets.
// Collision detection works on raw values, before any canonical mapping.
func (s *Stats) observeCategorical(recs []records.Record, col string) {
	if !recs[0].Header.Has(col) {
		return
	}
	freq := s.Freq[col]
	if freq == nil {
		freq = map[string]int64{}
		s.Freq[col] = freq
	}
	sp := s.Spellings[col]
	if sp == nil {
		sp = map[string]map[string]struct{}{}
		s.Spellings[col] = sp
	}
	for _, r := range recs {
		v := r.Get(col)
		freq[v.S]++
		if builtin.IsMissing(v) {
			continue
		}
		key := builtin.Normalize(v.S)
		set := sp[key]
		if set == nil {
			set = map[string]struct{}{}
			sp[key] = set
		}
		set[v.S] = struct{}{}
	}
}

// Merge folds o into s. o is not modified.
func (s *Stats) Merge(o *Stats) {
	s.Rows += o.Rows
	s.Clean += o.Clean
	s.Rejected += o.Rejected
	addCounts(s.Codes, o.Codes)
	addCounts(s.Missing, o.Missing)
	addCounts(s.Whitespace, o.Whitespace)
	addCounts(s.Newline, o.Newline)

	for col, op := range o.Patterns {
		p := s.pattern(col)
		p.Invalid += op.Invalid
		p.Encoding += op.Encoding
		p.Structural += op.Structural
		p.Examples.merge(op.Examples)
	}
	for col, on := range o.Numeric {
		n := s.numeric(col)
		n.Missing += on.Missing
		n.ParseFail += on.ParseFail
		n.Negative += on.Negative
		n.OutOfRange += on.OutOfRange
		n.Examples.merge(on.Examples)
	}

	s.Checked += o.Checked
	s.Mismatched += o.Mismatched

	s.DateInvalid += o.DateInvalid
	s.DateExamples.merge(o.DateExamples)
	if o.DateSeen {
		s.observeDate(o.DateMin)
		s.observeDate(o.DateMax)
	}

	for col, of := range o.Freq {
		f := s.Freq[col]
		if f == nil {
			f = map[string]int64{}
			s.Freq[col] = f
		}
		addCounts(f, of)
	}
	for col, osp := range o.Spellings {
		sp := s.Spellings[col]
		if sp == nil {
			sp = map[string]map[string]struct{}{}
			s.Spellings[col] = sp
		}
		for key, oset := range osp {
			set := sp[key]
			if set == nil {
				set = make(map[string]struct{}, len(oset))
				sp[key] = set
			}
			for raw := range oset {
				set[raw] = struct{}{}
			}
		}
	}
}

func addCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}
