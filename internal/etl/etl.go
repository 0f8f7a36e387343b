// Package etl runs the two txnetl modes over one input: analyze, which
// folds every chunk into quality statistics and derives a report, and clean,
// which streams each chunk into a clean file and a reject file.
//
// Row and field defects are data, never control flow. Only source I/O and
// output failures end a run; both are reported wrapped in ErrSourceIO or
// ErrOutput so the CLI can pick an exit code with errors.Is.
package etl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"txnetl/internal/config"
	"txnetl/internal/datasource"
	"txnetl/internal/datasource/file"
	"txnetl/internal/parser"
	csvparser "txnetl/internal/parser/csv"
	"txnetl/internal/schema"
	"txnetl/internal/storage"
	"txnetl/internal/transformer"
	"txnetl/internal/transformer/builtin"
)

var (
	// ErrSourceIO marks failures to open or read the input.
	ErrSourceIO = errors.New("source i/o failure")
	// ErrOutput marks failures to create or write an output file.
	ErrOutput = errors.New("output failure")
)

// errSample is how many unparseable-line messages are kept for the summary.
const errSample = 3

// Runner executes runs for one pipeline. A Runner may be reused; each call
// opens the source afresh.
type Runner struct {
	cfg        config.Pipeline
	src        datasource.Source
	contract   *schema.Contract
	classifier *transformer.Classifier
	prep       transformer.Transformer
	ledger     storage.Repository
	now        func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSource replaces the file source named by source.file.path.
func WithSource(src datasource.Source) Option { return func(r *Runner) { r.src = src } }

// WithLedger appends a summary row to repo after every successful run.
func WithLedger(repo storage.Repository) Option { return func(r *Runner) { r.ledger = repo } }

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// NewRunner builds a Runner for cfg. Unset canonical maps and fills take the
// built-in tables.
func NewRunner(cfg config.Pipeline, opts ...Option) *Runner {
	contract := schema.Transactions()

	canonical := cfg.Validation.Canonical
	if canonical == nil {
		canonical = builtin.DefaultCanonicalMaps()
	}
	fills := cfg.Validation.FillMissing
	if fills == nil {
		fills = builtin.DefaultFills()
	}

	r := &Runner{
		cfg:        cfg,
		contract:   contract,
		classifier: transformer.NewClassifier(contract, cfg.Validation.TotalTolerance),
		prep: transformer.Chain{
			builtin.NewCanonicalize(canonical),
			builtin.FillMissing{Values: fills},
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.src == nil {
		r.src = file.NewLocal(cfg.Source.File.Path)
	}
	return r
}

// csvOptions maps parser.options and runtime limits onto the chunk reader.
func csvOptions(p config.Pipeline) csvparser.Options {
	o := p.Parser.Options
	opt := csvparser.Options{
		Comma:      o.Rune("comma", ','),
		HasHeader:  o.Bool("has_header", true),
		LazyQuotes: o.Bool("lazy_quotes", true),
		Columns:    o.StringSlice("columns"),
		ChunkSize:  p.Runtime.ChunkSize,
		MaxRows:    p.Runtime.MaxRows,
	}
	if o.Has("null_markers") {
		opt.NullMarkers = o.StringSlice("null_markers")
		if opt.NullMarkers == nil {
			opt.NullMarkers = []string{}
		}
	}
	return opt
}

// open starts a chunk reader over a fresh source stream. Unparseable lines
// go to agg.
func (r *Runner) open(ctx context.Context, agg *errAgg) (parser.ChunkSource, error) {
	rc, err := r.src.Open(ctx)
	if err != nil {
		return nil, readErr(err)
	}
	cr, err := csvparser.NewChunkReader(rc, csvOptions(r.cfg), func(line int, err error) {
		agg.add(fmt.Sprintf("line %d: %v", line, err))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceIO, err)
	}
	return cr, nil
}

// runMeta is shared by the analyze and clean summaries.
type runMeta struct {
	ID       uuid.UUID
	Job      string
	Mode     string
	Started  time.Time
	Finished time.Time
}

func (r *Runner) begin(mode string) runMeta {
	return runMeta{ID: uuid.New(), Job: r.cfg.Job, Mode: mode, Started: r.now()}
}

// errAgg keeps a count and the first few messages.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newErrAgg(limit int) *errAgg { return &errAgg{limit: limit} }

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

// logSummary prints the count and the sampled messages.
func (a *errAgg) logSummary(component string) {
	if a.count == 0 {
		return
	}
	log.Printf("%s: unparseable_lines=%d (showing first %d)", component, a.count, len(a.first))
	for i, s := range a.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}
