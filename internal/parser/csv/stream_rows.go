// Package csv reads delimited files into bounded chunks of records.
//
// The reader never buffers the whole file: it keeps one csv.Reader over a
// UTF-8 repairing decoder and materializes at most one chunk at a time.
// Malformed byte sequences become U+FFFD. A row the tokenizer cannot parse is
// reported through onErr and counted, then still emitted with the cells read
// before the failure and marked Malformed; validators treat the unread cells
// as parse failures.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"txnetl/internal/transformer/builtin"
	"txnetl/pkg/records"
)

// DefaultChunkSize bounds the number of records per chunk.
const DefaultChunkSize = 200_000

// logEveryChunks is the progress heartbeat interval.
const logEveryChunks = 5

// DefaultNullMarkers are the cell spellings read as null: the NA vocabulary
// the dataset's producers already use.
var DefaultNullMarkers = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Options configures a ChunkReader. Zero values take defaults.
type Options struct {
	Comma      rune
	HasHeader  bool
	LazyQuotes bool

	// Columns names the fields positionally when HasHeader is false.
	Columns []string

	// NullMarkers replaces DefaultNullMarkers when non-nil.
	NullMarkers []string

	ChunkSize int
	// MaxRows caps the number of records read overall; 0 means no cap.
	MaxRows int64
}

// ChunkReader yields records in file order, ChunkSize at a time.
type ChunkReader struct {
	src    io.Closer
	cr     *csv.Reader
	header *records.Header
	nulls  map[string]struct{}
	onErr  func(line int, err error)

	chunkSize int
	maxRows   int64

	rows        int64
	unparseable int64
	chunks      int
	done        bool
}

// NewChunkReader wraps src and reads the header (when configured). A header
// that cannot be read is returned as an error; src is closed in that case.
func NewChunkReader(src io.ReadCloser, opt Options, onErr func(line int, err error)) (*ChunkReader, error) {
	dec := transform.NewReader(src, unicode.UTF8BOM.NewDecoder())
	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1 // ragged rows are tolerated

	markers := opt.NullMarkers
	if markers == nil {
		markers = DefaultNullMarkers
	}
	nulls := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		nulls[m] = struct{}{}
	}

	r := &ChunkReader{
		src:       src,
		cr:        cr,
		nulls:     nulls,
		onErr:     onErr,
		chunkSize: opt.ChunkSize,
		maxRows:   opt.MaxRows,
	}
	if r.chunkSize <= 0 {
		r.chunkSize = DefaultChunkSize
	}

	if !opt.HasHeader {
		if len(opt.Columns) == 0 {
			src.Close()
			return nil, errors.New("csv: columns are required when has_header=false")
		}
		r.header = records.NewHeader(opt.Columns)
		return r, nil
	}

	hdr, err := cr.Read()
	if err != nil {
		src.Close()
		if err == io.EOF {
			return nil, errors.New("read header: empty input")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	labels := StripHeaderBOM(append([]string(nil), hdr...))
	names := make([]string, len(labels))
	for i, h := range labels {
		if builtin.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		names[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
	}
	r.header = records.NewHeader(names).WithLabels(labels)
	return r, nil
}

// Header returns the input header. Names are normalized for lookup; Labels
// keep the cells as read.
func (r *ChunkReader) Header() *records.Header { return r.header }

// Rows returns the number of records emitted so far.
func (r *ChunkReader) Rows() int64 { return r.rows }

// Unparseable returns the number of rows emitted after a tokenizer error.
func (r *ChunkReader) Unparseable() int64 { return r.unparseable }

// Close releases the underlying source.
func (r *ChunkReader) Close() error { return r.src.Close() }

// Next returns the next chunk, or io.EOF once the input or the row cap is
// exhausted. ctx and the cap are only consulted between chunks.
func (r *ChunkReader) Next(ctx context.Context) ([]records.Record, error) {
	if r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := r.chunkSize
	if r.maxRows > 0 {
		remaining := r.maxRows - r.rows
		if remaining <= 0 {
			r.done = true
			return nil, io.EOF
		}
		if remaining < int64(want) {
			want = int(remaining)
		}
	}

	width := r.header.Len()
	chunk := make([]records.Record, 0, min(want, 4096))
	for len(chunk) < want {
		cells, err := r.cr.Read()
		if err == io.EOF {
			r.done = true
			break
		}
		malformed := false
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("csv read: %w", err)
			}
			malformed = true
			r.unparseable++
			if r.onErr != nil {
				r.onErr(pe.StartLine, err)
			}
		}

		vals := make([]records.Value, width)
		for i := 0; i < width && i < len(cells); i++ {
			if _, null := r.nulls[cells[i]]; !null {
				vals[i] = records.Str(cells[i])
			}
		}
		r.rows++
		rec := records.Record{Header: r.header, Row: r.rows, Values: vals}
		if malformed {
			rec.Malformed, rec.Cut = true, len(cells)
		}
		chunk = append(chunk, rec)
	}

	if len(chunk) == 0 {
		return nil, io.EOF
	}
	r.chunks++
	if r.chunks%logEveryChunks == 0 {
		log.Printf("reader: chunks=%d rows=%d unparseable=%d", r.chunks, r.rows, r.unparseable)
	}
	return chunk, nil
}
