// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path. It is safe for concurrent use; every Open returns its own descriptor.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - If the context is already done, Open returns the context error without
//     touching the filesystem.
//   - Filesystem errors are wrapped with the path and keep errors.Is working
//     (e.g. errors.Is(err, os.ErrNotExist)).
//   - On Linux the descriptor is advised for sequential access. A failed hint
//     is logged and otherwise ignored.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if err := adviseSequential(f); err != nil {
		log.Printf("datasource: fadvise path=%s err=%v", l.path, err)
	}
	return f, nil
}
