package etl

import (
	"context"
	"log"
	"time"

	"txnetl/internal/metrics"
	"txnetl/internal/quality"
	"txnetl/internal/storage"
)

// ledgerCounts carries the per-run totals written to the ledger.
type ledgerCounts struct {
	rows        int64
	clean       int64
	rejected    int64
	unparseable int64
	checked     int64
	mismatched  int64
	codes       []storage.CodeCount
}

// record appends one summary row for the run. A ledger failure is logged and
// counted but never fails the run: the outputs are already complete.
func (r *Runner) record(ctx context.Context, meta runMeta, input string, c ledgerCounts, cleanDigest, rejectDigest string) {
	if r.ledger == nil {
		return
	}
	if meta.Finished.IsZero() {
		meta.Finished = r.now()
	}
	start := time.Now()
	err := storage.RecordRun(ctx, r.ledger, storage.RunRecord{
		ID:           meta.ID,
		Job:          meta.Job,
		Mode:         meta.Mode,
		Input:        input,
		Started:      meta.Started,
		Finished:     meta.Finished,
		Rows:         c.rows,
		Clean:        c.clean,
		Rejected:     c.rejected,
		Unparseable:  c.unparseable,
		Checked:      c.checked,
		Mismatched:   c.mismatched,
		CleanDigest:  cleanDigest,
		RejectDigest: rejectDigest,
		Codes:        c.codes,
	})
	metrics.RecordStep(meta.Job, meta.Mode, "ledger", err, time.Since(start))
	if err != nil {
		log.Printf("ledger: run=%s record failed: %v", meta.ID, err)
		return
	}
	log.Printf("ledger: run=%s recorded mode=%s rows=%d", meta.ID, meta.Mode, c.rows)
}

func fromValueCounts(vc []quality.ValueCount) []storage.CodeCount {
	if len(vc) == 0 {
		return nil
	}
	out := make([]storage.CodeCount, len(vc))
	for i, v := range vc {
		out[i] = storage.CodeCount{Code: v.Value, Count: v.Count}
	}
	return out
}
