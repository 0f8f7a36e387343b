package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"txnetl/internal/config"
	"txnetl/internal/metrics"
	"txnetl/internal/parser"
	"txnetl/internal/quality"
	"txnetl/pkg/records"
)

// AnalyzeResult is the outcome of an analyze run.
type AnalyzeResult struct {
	runMeta
	Input  string
	Chunks int64
	Stats  *quality.Stats
	Report quality.Report
}

// Analyze reads the whole input and returns the quality report. With
// runtime.workers > 1 chunks are evaluated in parallel into per-worker
// statistics that are merged once at the end; the report is identical for
// any worker count or chunk size.
func (r *Runner) Analyze(ctx context.Context) (*AnalyzeResult, error) {
	res := &AnalyzeResult{runMeta: r.begin(config.ModeAnalyze), Input: r.cfg.Source.File.Path}
	start := time.Now()

	stats, chunks, unparseable, err := r.analyze(ctx)
	metrics.RecordStep(res.Job, res.Mode, "analyze", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	res.Finished = r.now()
	res.Chunks = chunks
	res.Stats = stats
	res.Report = stats.Report(r.contract, r.classifier.Tolerance(), quality.ReportOptions{TopK: r.cfg.Runtime.TopK})
	res.Report.UnparseableLines = unparseable

	metrics.RecordChunks(res.Job, res.Mode, chunks)
	metrics.RecordRows(res.Job, res.Mode, metrics.KindProcessed, stats.Rows)
	metrics.RecordRows(res.Job, res.Mode, metrics.KindClean, stats.Clean)
	metrics.RecordRows(res.Job, res.Mode, metrics.KindRejected, stats.Rejected)
	metrics.RecordRows(res.Job, res.Mode, metrics.KindUnparseable, unparseable)
	metrics.RecordRows(res.Job, res.Mode, metrics.KindMismatched, stats.Mismatched)

	log.Printf("analyze: run=%s rows=%d clean=%d rejected=%d unparseable=%d chunks=%d elapsed=%s",
		res.ID, stats.Rows, stats.Clean, stats.Rejected, unparseable, chunks,
		time.Since(start).Truncate(time.Millisecond))

	r.record(ctx, res.runMeta, res.Input, ledgerCounts{
		rows:        stats.Rows,
		clean:       stats.Clean,
		rejected:    stats.Rejected,
		unparseable: unparseable,
		checked:     stats.Checked,
		mismatched:  stats.Mismatched,
		codes:       fromValueCounts(res.Report.Codes),
	}, "", "")
	return res, nil
}

func (r *Runner) analyze(ctx context.Context) (*quality.Stats, int64, int64, error) {
	agg := newErrAgg(errSample)
	cr, err := r.open(ctx, agg)
	if err != nil {
		return nil, 0, 0, err
	}
	defer cr.Close()

	workers := r.cfg.Runtime.Workers
	var (
		stats  *quality.Stats
		chunks int64
	)
	if workers <= 1 {
		stats, chunks, err = r.analyzeSequential(ctx, cr)
	} else {
		stats, chunks, err = r.analyzeParallel(ctx, cr, workers)
	}
	agg.logSummary("analyze")
	if err != nil {
		return nil, 0, 0, err
	}
	return stats, chunks, cr.Unparseable(), nil
}

func (r *Runner) analyzeSequential(ctx context.Context, cr parser.ChunkSource) (*quality.Stats, int64, error) {
	stats := quality.New()
	var chunks int64
	for {
		recs, err := cr.Next(ctx)
		if errors.Is(err, io.EOF) {
			return stats, chunks, nil
		}
		if err != nil {
			return nil, 0, readErr(err)
		}
		chunks++
		stats.Observe(r.contract, recs, r.classifier.EvaluateBatch(recs))
	}
}

// analyzeParallel runs one reader goroutine feeding workers through a
// bounded channel. Each worker owns its Stats; they are merged after Wait.
func (r *Runner) analyzeParallel(ctx context.Context, cr parser.ChunkSource, workers int) (*quality.Stats, int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	in := make(chan []records.Record, workers)
	var chunks int64

	g.Go(func() error {
		defer close(in)
		for {
			recs, err := cr.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return readErr(err)
			}
			chunks++
			select {
			case in <- recs:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	partial := make([]*quality.Stats, workers)
	for w := 0; w < workers; w++ {
		partial[w] = quality.New()
		st := partial[w]
		g.Go(func() error {
			for recs := range in {
				st.Observe(r.contract, recs, r.classifier.EvaluateBatch(recs))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	merged := quality.New()
	for _, st := range partial {
		merged.Merge(st)
	}
	return merged, chunks, nil
}

// readErr classifies a source failure. Cancellation is passed
// through unchanged.
func readErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSourceIO, err)
}
