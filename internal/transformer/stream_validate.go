// Package transformer contains the row classifier and the streaming
// clean/reject stage built on it. PartitionLoop is drain-safe: it never
// returns before its input channel is closed, so the reader goroutine feeding
// it can never block on a send after a write failure.
package transformer

import (
	"context"
	"strings"

	"txnetl/internal/transformer/builtin"
	"txnetl/pkg/records"
)

// RejectSeparator joins error codes in the reject_reason column.
const RejectSeparator = ";"

// Rejected is a record that failed at least one check, with its codes.
type Rejected struct {
	Record records.Record
	Codes  []string
}

// Reason renders the codes the way the reject file stores them.
func (r Rejected) Reason() string { return strings.Join(r.Codes, RejectSeparator) }

// Partition is one chunk split into clean and rejected records. Both slices
// keep input order. Checked and Mismatched count the rows on which the
// total_amount check ran and failed.
type Partition struct {
	Clean      []records.Record
	Rejected   []Rejected
	Checked    int64
	Mismatched int64
}

// Split classifies recs and then applies prep (canonical mapping, fills) to
// every record. Codes are computed on the raw values.
func (c *Classifier) Split(recs []records.Record, prep Transformer) Partition {
	b := c.EvaluateBatch(recs)
	if prep != nil {
		recs = prep.Apply(recs)
	}

	var p Partition
	for i, r := range recs {
		switch b.Consistency[i] {
		case builtin.ConsistencyOK:
			p.Checked++
		case builtin.ConsistencyMismatch:
			p.Checked++
			p.Mismatched++
		}
		if b.Clean(i) {
			p.Clean = append(p.Clean, r)
			continue
		}
		p.Rejected = append(p.Rejected, Rejected{Record: r, Codes: b.Codes(i)})
	}
	return p
}

// PartitionLoop splits every chunk read from in and hands the result to emit,
// one chunk at a time and in arrival order. After the first emit error, or
// once ctx is done, remaining chunks are drained without being emitted. The
// first error (emit's, else ctx's) is returned after in is closed.
func PartitionLoop(
	ctx context.Context,
	c *Classifier,
	prep Transformer,
	in <-chan []records.Record,
	emit func(Partition) error,
) error {
	var first error
	for recs := range in {
		if first != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			first = err
			continue
		}
		if err := emit(c.Split(recs, prep)); err != nil {
			first = err
		}
	}
	return first
}
