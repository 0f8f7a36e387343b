package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLedgerTable is used when ledger.table is empty.
const DefaultLedgerTable = "txnetl_runs"

// LedgerColumns is the column order of the ledger table.
var LedgerColumns = []string{
	"run_id", "job", "mode", "input_path",
	"started_at", "finished_at",
	"rows_processed", "clean_rows", "rejected_rows", "unparseable_lines",
	"checked", "mismatched",
	"clean_digest", "reject_digest", "top_codes",
}

// CodeCount is a reject code and the number of rows carrying it.
type CodeCount struct {
	Code  string
	Count int64
}

// RunRecord is one ledger row: the summary of a finished run.
type RunRecord struct {
	ID       uuid.UUID
	Job      string
	Mode     string
	Input    string
	Started  time.Time
	Finished time.Time

	Rows        int64
	Clean       int64
	Rejected    int64
	Unparseable int64
	Checked     int64
	Mismatched  int64

	CleanDigest  string
	RejectDigest string
	Codes        []CodeCount
}

// EncodeCodes renders codes as CODE=n pairs joined by ';'.
func EncodeCodes(codes []CodeCount) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%s=%d", c.Code, c.Count)
	}
	return strings.Join(parts, ";")
}

// Row returns the record aligned to LedgerColumns.
func (r RunRecord) Row() []any {
	return []any{
		r.ID.String(), r.Job, r.Mode, r.Input,
		r.Started.UTC(), r.Finished.UTC(),
		r.Rows, r.Clean, r.Rejected, r.Unparseable,
		r.Checked, r.Mismatched,
		r.CleanDigest, r.RejectDigest, EncodeCodes(r.Codes),
	}
}

// RecordRun appends run to the ledger table the repository was opened on.
func RecordRun(ctx context.Context, repo Repository, run RunRecord) error {
	n, err := repo.CopyFrom(ctx, LedgerColumns, [][]any{run.Row()})
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	if n != 1 {
		return fmt.Errorf("record run %s: inserted %d rows, want 1", run.ID, n)
	}
	return nil
}
