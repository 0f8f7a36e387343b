// Package metrics is a small, backend-agnostic abstraction for recording run
// metrics: step outcomes and durations, row counts by kind, chunk counts and
// reject-code counts.
//
// A global backend defaults to a no-op, so instrumentation is always safe to
// call. Concrete systems live in subpackages (prompush, datadog) and are
// installed with SetBackend by the CLI.
package metrics

import "time"

// Metric names emitted by the Record* helpers.
const (
	StepTotal       = "txnetl_step_total"
	StepDuration    = "txnetl_step_duration_seconds"
	RowsTotal       = "txnetl_rows_total"
	ChunksTotal     = "txnetl_chunks_total"
	RejectCodeTotal = "txnetl_reject_codes_total"
)

// Row kinds used with RecordRows.
const (
	KindProcessed   = "processed"
	KindClean       = "clean"
	KindRejected    = "rejected"
	KindUnparseable = "unparseable"
	KindMismatched  = "mismatched"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step (read, analyze, clean,
// report, ledger) and observes its duration.
func RecordStep(job, mode, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"mode":   mode,
		"step":   step,
		"status": status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments the row counter for kind. Non-positive deltas are
// ignored.
func RecordRows(job, mode, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"mode": mode,
		"kind": kind,
	})
}

// RecordChunks increments the chunk counter.
func RecordChunks(job, mode string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(ChunksTotal, float64(delta), Labels{
		"job":  job,
		"mode": mode,
	})
}

// RecordRejectCode increments the per-code reject counter.
func RecordRejectCode(job, code string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RejectCodeTotal, float64(delta), Labels{
		"job":  job,
		"code": code,
	})
}
