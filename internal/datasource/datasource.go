// Package datasource abstracts where input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh stream of the input. Each call returns an independent
// reader positioned at the start.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
