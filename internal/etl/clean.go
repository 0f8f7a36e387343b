package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"txnetl/internal/config"
	"txnetl/internal/metrics"
	"txnetl/internal/parser"
	"txnetl/internal/schema"
	"txnetl/internal/storage"
	"txnetl/internal/storage/csvfile"
	"txnetl/internal/transformer"
	"txnetl/pkg/records"
)

// CleanSummary is the outcome of a clean run.
type CleanSummary struct {
	runMeta
	Input string

	Rows        int64
	Clean       int64
	Rejected    int64
	Unparseable int64
	Checked     int64
	Mismatched  int64
	Chunks      int64

	// Codes counts rejected rows per error code, most frequent first.
	Codes []storage.CodeCount

	CleanPath    string
	RejectPath   string
	CleanDigest  string
	RejectDigest string
}

// outputs owns the two writers of a clean run.
type outputs struct {
	clean  *csvfile.Writer
	reject *csvfile.Writer
}

func createOutputs(cleanPath, rejectPath string, header []string) (*outputs, error) {
	cw, err := csvfile.Create(cleanPath, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	rejectHeader := append(append([]string(nil), header...), schema.RejectReasonColumn)
	rw, err := csvfile.Create(rejectPath, rejectHeader)
	if err != nil {
		cw.Close()
		return nil, fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return &outputs{clean: cw, reject: rw}, nil
}

func (o *outputs) write(p transformer.Partition) error {
	for _, rec := range p.Clean {
		if err := o.clean.Write(rec.Strings()); err != nil {
			return fmt.Errorf("%w: %w", ErrOutput, err)
		}
	}
	for _, rj := range p.Rejected {
		if err := o.reject.Write(append(rj.Record.Strings(), rj.Reason())); err != nil {
			return fmt.Errorf("%w: %w", ErrOutput, err)
		}
	}
	return nil
}

func (o *outputs) close() error {
	cerr := o.clean.Close()
	rerr := o.reject.Close()
	if err := errors.Join(cerr, rerr); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}

// Clean streams the input into output.clean_path and output.reject_path.
// Every processed row lands in exactly one file, in input order; the reject
// file carries an extra reject_reason column. Canonical mapping and missing
// fills are applied to both outputs after classification. Running twice over
// the same input produces byte-identical files.
func (r *Runner) Clean(ctx context.Context) (*CleanSummary, error) {
	sum := &CleanSummary{
		runMeta:    r.begin(config.ModeClean),
		Input:      r.cfg.Source.File.Path,
		CleanPath:  r.cfg.Output.CleanPath,
		RejectPath: r.cfg.Output.RejectPath,
	}
	start := time.Now()

	err := r.clean(ctx, sum)
	metrics.RecordStep(sum.Job, sum.Mode, "clean", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	sum.Finished = r.now()

	metrics.RecordChunks(sum.Job, sum.Mode, sum.Chunks)
	metrics.RecordRows(sum.Job, sum.Mode, metrics.KindProcessed, sum.Rows)
	metrics.RecordRows(sum.Job, sum.Mode, metrics.KindClean, sum.Clean)
	metrics.RecordRows(sum.Job, sum.Mode, metrics.KindRejected, sum.Rejected)
	metrics.RecordRows(sum.Job, sum.Mode, metrics.KindUnparseable, sum.Unparseable)
	metrics.RecordRows(sum.Job, sum.Mode, metrics.KindMismatched, sum.Mismatched)
	for _, c := range sum.Codes {
		metrics.RecordRejectCode(sum.Job, c.Code, c.Count)
	}

	log.Printf("clean: run=%s rows=%d clean=%d rejected=%d unparseable=%d elapsed=%s",
		sum.ID, sum.Rows, sum.Clean, sum.Rejected, sum.Unparseable,
		time.Since(start).Truncate(time.Millisecond))
	log.Printf("clean: wrote %s rows=%d xxh3=%s", sum.CleanPath, sum.Clean, sum.CleanDigest)
	log.Printf("clean: wrote %s rows=%d xxh3=%s", sum.RejectPath, sum.Rejected, sum.RejectDigest)
	for i, c := range sum.Codes {
		if i == 10 {
			break
		}
		log.Printf("clean: reject_reason %s=%d", c.Code, c.Count)
	}

	r.record(ctx, sum.runMeta, sum.Input, ledgerCounts{
		rows:        sum.Rows,
		clean:       sum.Clean,
		rejected:    sum.Rejected,
		unparseable: sum.Unparseable,
		checked:     sum.Checked,
		mismatched:  sum.Mismatched,
		codes:       sum.Codes,
	}, sum.CleanDigest, sum.RejectDigest)
	return sum, nil
}

func (r *Runner) clean(ctx context.Context, sum *CleanSummary) error {
	agg := newErrAgg(errSample)
	cr, err := r.open(ctx, agg)
	if err != nil {
		return err
	}
	defer cr.Close()

	out, err := createOutputs(sum.CleanPath, sum.RejectPath, cr.Header().Labels())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []records.Record, 1)
	done := make(chan struct{})
	var readFail error
	go func() {
		defer close(done)
		defer close(in)
		readFail = pump(ctx, cr, in, &sum.Chunks)
	}()

	codes := make(map[string]int64)
	loopErr := transformer.PartitionLoop(ctx, r.classifier, r.prep, in, func(p transformer.Partition) error {
		if err := out.write(p); err != nil {
			cancel()
			return err
		}
		sum.Clean += int64(len(p.Clean))
		sum.Rejected += int64(len(p.Rejected))
		sum.Checked += p.Checked
		sum.Mismatched += p.Mismatched
		for _, rj := range p.Rejected {
			for _, c := range rj.Codes {
				codes[c]++
			}
		}
		return nil
	})
	<-done
	agg.logSummary("clean")

	closeErr := out.close()
	switch {
	case loopErr != nil:
		return loopErr
	case readFail != nil:
		return readFail
	case closeErr != nil:
		return closeErr
	}

	sum.Rows = cr.Rows()
	sum.Unparseable = cr.Unparseable()
	sum.Codes = r.rankCodes(codes)
	sum.CleanDigest = out.clean.Digest()
	sum.RejectDigest = out.reject.Digest()
	return nil
}

// pump reads chunks into in until EOF, a read failure or cancellation.
func pump(ctx context.Context, cr parser.ChunkSource, in chan<- []records.Record, chunks *int64) error {
	for {
		recs, err := cr.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return readErr(err)
		}
		*chunks++
		select {
		case in <- recs:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// rankCodes orders codes by count, most frequent first; ties keep contract
// order with TOTAL_AMOUNT_MISMATCH last.
func (r *Runner) rankCodes(counts map[string]int64) []storage.CodeCount {
	order := r.contract.Codes()
	rank := make(map[string]int, len(order))
	for i, c := range order {
		rank[c] = i
	}
	out := make([]storage.CodeCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, storage.CodeCount{Code: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return rank[out[i].Code] < rank[out[j].Code]
	})
	return out
}
