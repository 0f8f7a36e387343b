package builtin

import "txnetl/pkg/records"

// FillMissing replaces null cells of selected columns with a fixed value,
// e.g. region_code -> UNKNOWN. Cells holding whitespace are left alone; only
// nulls are filled.
type FillMissing struct {
	Values map[string]string
}

// DefaultFills is the fill table used when none is configured.
func DefaultFills() map[string]string {
	return map[string]string{"region_code": "UNKNOWN"}
}

// Apply fills nulls in place.
func (f FillMissing) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(f.Values) == 0 {
		return in
	}
	h := in[0].Header
	ix := make(map[int]string, len(f.Values))
	for col, v := range f.Values {
		if i := h.Index(col); i >= 0 {
			ix[i] = v
		}
	}
	for _, r := range in {
		for i, v := range ix {
			if i < len(r.Values) && !r.Values[i].Valid {
				r.Values[i] = records.Str(v)
			}
		}
	}
	return in
}
