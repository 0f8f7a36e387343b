// Package parser defines the chunked record source consumed by the pipeline.
package parser

import (
	"context"

	"txnetl/pkg/records"
)

// ChunkSource yields bounded chunks of records in input order. Next returns
// io.EOF when the input (or the configured row cap) is exhausted.
type ChunkSource interface {
	Header() *records.Header
	Next(ctx context.Context) ([]records.Record, error)
	Rows() int64
	Unparseable() int64
	Close() error
}
