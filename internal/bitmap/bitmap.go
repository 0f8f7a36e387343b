// Package bitmap provides a compact bitset over row positions. The batch
// classifier keeps one bitmap per validated field ("rows failing this check")
// so that a chunk is evaluated column by column and the masks are combined
// afterwards.
package bitmap

import "math/bits"

// Bitmap represents a bitset backed by a slice of uint64 words.
type Bitmap struct {
	data []uint64
	n    int
}

// New allocates a bitmap for positions in the range [0, n).
//
// If n <= 0, no backing storage is allocated and the bitmap behaves as an
// empty set.
func New(n int) *Bitmap {
	if n <= 0 {
		return &Bitmap{}
	}
	return &Bitmap{data: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of addressable positions.
func (b *Bitmap) Len() int { return b.n }

// Add sets position id. Out-of-range ids are ignored.
func (b *Bitmap) Add(id int) {
	if id < 0 || id >= b.n {
		return
	}
	b.data[id/64] |= 1 << uint(id%64)
}

// Has reports whether position id is set.
func (b *Bitmap) Has(id int) bool {
	if id < 0 || id >= b.n {
		return false
	}
	return b.data[id/64]&(1<<uint(id%64)) != 0
}

// Count returns the number of set positions.
func (b *Bitmap) Count() int {
	c := 0
	for _, w := range b.data {
		c += bits.OnesCount64(w)
	}
	return c
}

// Or sets every position that is set in o. Both bitmaps must have the same
// length; extra words in o are ignored.
func (b *Bitmap) Or(o *Bitmap) {
	for i := range b.data {
		if i < len(o.data) {
			b.data[i] |= o.data[i]
		}
	}
}
