// Package records defines the raw record model shared by every stage of the
// pipeline: a header describing column positions and records whose cells are
// optional raw strings aligned to that header.
package records

// Value is one raw cell. Valid=false means the cell was null (absent in the
// row, or equal to a configured null marker); an empty string with Valid=true
// is still a value, even though validators treat it as missing.
type Value struct {
	S     string
	Valid bool
}

// Str returns a valid Value holding s.
func Str(s string) Value { return Value{S: s, Valid: true} }

// Null is the null Value.
var Null = Value{}

// Header maps column names to positions. It is built once per input file and
// shared read-only by every Record of that file.
type Header struct {
	names  []string
	labels []string
	index  map[string]int
}

// NewHeader builds a Header from ordered column names. Later duplicates do not
// shadow the first occurrence of a name.
func NewHeader(names []string) *Header {
	h := &Header{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if _, dup := h.index[n]; !dup {
			h.index[n] = i
		}
	}
	return h
}

// WithLabels returns a copy of h that renders as labels, e.g. the header cells
// exactly as the input spelled them. Lookups still use the names. labels must
// have one entry per column.
func (h *Header) WithLabels(labels []string) *Header {
	out := *h
	out.labels = append([]string(nil), labels...)
	return &out
}

// Names returns the column names in file order. Callers must not modify it.
func (h *Header) Names() []string { return h.names }

// Labels returns the display names of the columns, falling back to Names when
// none were set. Callers must not modify it.
func (h *Header) Labels() []string {
	if h.labels != nil {
		return h.labels
	}
	return h.names
}

// Len returns the number of columns.
func (h *Header) Len() int { return len(h.names) }

// Index returns the position of name, or -1 when the column is not present.
func (h *Header) Index(name string) int {
	if i, ok := h.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the header contains name.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Record is one input row. Row is the 1-based ordinal of the record among data
// rows of the input (header excluded); it gives a total, chunking-independent
// order over records.
type Record struct {
	Header *Header
	Row    int64
	Values []Value

	// Malformed is set when the tokenizer failed partway through the row.
	// Cells at positions >= Cut were never read and hold null.
	Malformed bool
	Cut       int
}

// Unread reports whether column name lies past the point where a malformed
// row stopped parsing.
func (r Record) Unread(name string) bool {
	if !r.Malformed {
		return false
	}
	i := r.Header.Index(name)
	return i >= 0 && i >= r.Cut
}

// Get returns the value of column name. Columns absent from the header read
// as null, exactly like null cells.
func (r Record) Get(name string) Value {
	i := r.Header.Index(name)
	if i < 0 || i >= len(r.Values) {
		return Null
	}
	return r.Values[i]
}

// At returns the value at position i, or null when out of range.
func (r Record) At(i int) Value {
	if i < 0 || i >= len(r.Values) {
		return Null
	}
	return r.Values[i]
}

// Clone returns a copy whose Values slice is independent of r.
func (r Record) Clone() Record {
	out := r
	out.Values = append([]Value(nil), r.Values...)
	return out
}

// Strings renders the record as CSV cells; null cells become empty strings.
func (r Record) Strings() []string {
	out := make([]string, r.Header.Len())
	for i := range out {
		if v := r.At(i); v.Valid {
			out[i] = v.S
		}
	}
	return out
}
