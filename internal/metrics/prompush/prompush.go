// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. Runs are short-lived batch jobs, so collected metrics are
// pushed on Flush instead of being exposed for scraping.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"txnetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend. The job label is the
// Pushgateway grouping key and is not repeated on the collectors.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // step, mode, status
	stepDuration *prometheus.SummaryVec // step, mode, status
	rowCounter   *prometheus.CounterVec // mode, kind
	chunkCounter *prometheus.CounterVec // mode
	codeCounter  *prometheus.CounterVec // code
}

// NewBackend constructs a Pushgateway backend. An empty jobName defaults to
// "txnetl".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "txnetl"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Run step executions by step, mode and status.",
			},
			[]string{"step", "mode", "status"},
		),
		stepDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.StepDuration,
				Help:       "Run step durations in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"step", "mode", "status"},
		),
		rowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RowsTotal,
				Help: "Rows by kind (processed, clean, rejected, unparseable, mismatched).",
			},
			[]string{"mode", "kind"},
		),
		chunkCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.ChunksTotal,
				Help: "Chunks read from the input.",
			},
			[]string{"mode"},
		),
		codeCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RejectCodeTotal,
				Help: "Rejected rows carrying each error code.",
			},
			[]string{"code"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":  b.stepCounter,
		"step summary":  b.stepDuration,
		"row counter":   b.rowCounter,
		"chunk counter": b.chunkCounter,
		"code counter":  b.codeCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// IncCounter routes known metric names to their collectors; unknown names
// are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["mode"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["mode"], labels["kind"]).Add(delta)
	case metrics.ChunksTotal:
		if b.chunkCounter == nil {
			return
		}
		b.chunkCounter.WithLabelValues(labels["mode"]).Add(delta)
	case metrics.RejectCodeTotal:
		if b.codeCounter == nil {
			return
		}
		b.codeCounter.WithLabelValues(labels["code"]).Add(delta)
	}
}

// ObserveHistogram records step durations.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["mode"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
