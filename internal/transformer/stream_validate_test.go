package transformer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txnetl/internal/schema"
	"txnetl/internal/transformer/builtin"
	"txnetl/pkg/records"
)

/*
TestSplitPreservesOrder verifies the partition invariants on one chunk: every
record lands in exactly one side, each side keeps input order, and reject
reasons are the codes joined by ';'. Canonical mapping runs after
classification and is visible on both sides.
*/
func TestSplitPreservesOrder(t *testing.T) {
	c := NewClassifier(schema.Transactions(), 0)
	prep := Chain{
		builtin.NewCanonicalize(builtin.DefaultCanonicalMaps()),
		builtin.FillMissing{Values: builtin.DefaultFills()},
	}
	noRegion := with("country", "turkye")
	delete(noRegion, "region_code")
	recs := []records.Record{
		rec(1, validRow()),
		rec(2, with("email", "bad", "total_amount", "20.5")),
		rec(3, noRegion),
		rec(4, with("rating", "9")),
		rec(5, with("country", "Turkey ")),
	}

	p := c.Split(recs, prep)

	require.Len(t, p.Clean, 3)
	require.Len(t, p.Rejected, 2)
	assert.Equal(t, []int64{1, 3, 5}, []int64{p.Clean[0].Row, p.Clean[1].Row, p.Clean[2].Row})
	assert.Equal(t, int64(2), p.Rejected[0].Record.Row)
	assert.Equal(t, "INVALID_EMAIL;TOTAL_AMOUNT_MISMATCH", p.Rejected[0].Reason())
	assert.Equal(t, "INVALID_RATING", p.Rejected[1].Reason())
	assert.Equal(t, int64(5), p.Checked)
	assert.Equal(t, int64(1), p.Mismatched)

	assert.Equal(t, "Turkey", p.Clean[1].Get("country").S)
	assert.Equal(t, "UNKNOWN", p.Clean[1].Get("region_code").S)
	assert.Equal(t, "Turkey", p.Clean[2].Get("country").S)
}

/*
TestPartitionLoopDrains checks that chunks are emitted in arrival order, and
that after an emit error the loop keeps draining its input (so the producer
never blocks) and reports the first error.
*/
func TestPartitionLoopDrains(t *testing.T) {
	c := NewClassifier(schema.Transactions(), 0)
	in := make(chan []records.Record)

	go func() {
		defer close(in)
		for i := int64(1); i <= 5; i++ {
			in <- []records.Record{rec(i, validRow())}
		}
	}()

	boom := errors.New("disk full")
	var seen []int64
	err := PartitionLoop(context.Background(), c, nil, in, func(p Partition) error {
		seen = append(seen, p.Clean[0].Row)
		if len(seen) == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int64{1, 2}, seen)
}

func TestPartitionLoopCanceled(t *testing.T) {
	c := NewClassifier(schema.Transactions(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan []records.Record, 2)
	in <- []records.Record{rec(1, validRow())}
	in <- []records.Record{rec(2, validRow())}
	close(in)

	calls := 0
	err := PartitionLoop(ctx, c, nil, in, func(Partition) error { calls++; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
