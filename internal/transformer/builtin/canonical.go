package builtin

import (
	"sort"

	"txnetl/pkg/records"
)

// CanonicalMap maps normalized keys to one canonical display spelling.
type CanonicalMap map[string]string

// DefaultCanonicalMaps is the curated spelling table for the transactional
// dataset. Keys may be written in any spelling; they are normalized when a
// Canonicalize transformer is built.
func DefaultCanonicalMaps() map[string]map[string]string {
	return map[string]map[string]string{
		"country": {
			"turkye":   "Turkey",
			"tÃ¼rkiye": "Turkey",
			"türkiye":  "Turkey",
			"turkey":   "Turkey",
			"germeny":  "Germany",
			"germany":  "Germany",
			"frence":   "France",
			"france":   "France",
		},
		"department": {
			"suport":     "Support",
			"support":    "Support",
			"operatons":  "Operations",
			"operations": "Operations",
			"marketng":   "Marketing",
			"marketing":  "Marketing",
			"salles":     "Sales",
			"sales":      "Sales",
			"finnance":   "Finance",
			"finance":    "Finance",
			"leegal":     "Legal",
			"legal":      "Legal",
		},
	}
}

// Canonicalize rewrites known categorical misspellings to their canonical
// display value. Unknown values keep their trimmed original spelling; null
// cells stay null.
type Canonicalize struct {
	maps map[string]CanonicalMap
}

// NewCanonicalize builds the transformer from column -> (spelling -> display).
func NewCanonicalize(maps map[string]map[string]string) *Canonicalize {
	c := &Canonicalize{maps: make(map[string]CanonicalMap, len(maps))}
	for col, m := range maps {
		cm := make(CanonicalMap, len(m))
		for k, display := range m {
			cm[Normalize(k)] = display
		}
		c.maps[col] = cm
	}
	return c
}

// Columns returns the mapped columns, sorted.
func (c *Canonicalize) Columns() []string {
	out := make([]string, 0, len(c.maps))
	for col := range c.maps {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the canonical value for one cell of column.
func (c *Canonicalize) Lookup(column string, v records.Value) records.Value {
	m, ok := c.maps[column]
	if !ok || !v.Valid {
		return v
	}
	if display, ok := m[Normalize(v.S)]; ok {
		return records.Str(display)
	}
	return records.Str(Trim(v.S))
}

// Apply rewrites every mapped column of every record in place.
func (c *Canonicalize) Apply(in []records.Record) []records.Record {
	if len(in) == 0 {
		return in
	}
	h := in[0].Header
	type target struct {
		ix  int
		col string
	}
	var targets []target
	for col := range c.maps {
		if ix := h.Index(col); ix >= 0 {
			targets = append(targets, target{ix: ix, col: col})
		}
	}
	for _, r := range in {
		for _, t := range targets {
			if t.ix < len(r.Values) {
				r.Values[t.ix] = c.Lookup(t.col, r.Values[t.ix])
			}
		}
	}
	return in
}
