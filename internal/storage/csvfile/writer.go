// Package csvfile writes the clean and reject outputs of a clean run. Each
// Writer fingerprints exactly the bytes it writes with xxh3, so two runs
// over the same input can be compared by digest alone.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
)

const bufSize = 1 << 20

// Writer is a buffered CSV file writer with a running digest and row count.
// It is not safe for concurrent use.
type Writer struct {
	path string
	f    *os.File
	bw   *bufio.Writer
	cw   *csv.Writer
	h    *xxh3.Hasher
	rows int64
}

// Create makes any missing parent directories, truncates path and writes
// header as the first line.
func Create(path string, header []string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	w := &Writer{path: path, f: f, h: xxh3.New()}
	w.bw = bufio.NewWriterSize(f, bufSize)
	w.cw = csv.NewWriter(io.MultiWriter(w.bw, w.h))
	if err := w.cw.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	return w, nil
}

// Path returns the file path.
func (w *Writer) Path() string { return w.path }

// Write appends one data row.
func (w *Writer) Write(cells []string) error {
	if err := w.cw.Write(cells); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written (header excluded).
func (w *Writer) Rows() int64 { return w.rows }

// Flush pushes buffered rows to the file.
func (w *Writer) Flush() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	return nil
}

// Digest returns the hex xxh3-64 of everything written so far, header
// included. Call after Flush or Close for a final value.
func (w *Writer) Digest() string {
	w.cw.Flush()
	return fmt.Sprintf("%016x", w.h.Sum64())
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	ferr := w.Flush()
	cerr := w.f.Close()
	if ferr != nil {
		return ferr
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", w.path, cerr)
	}
	return nil
}
