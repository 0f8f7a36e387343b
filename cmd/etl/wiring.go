package main

import (
	"context"
	"log"

	"txnetl/internal/config"
	"txnetl/internal/etl"
	"txnetl/internal/metrics"
	"txnetl/internal/metrics/datadog"
	"txnetl/internal/metrics/prompush"
	"txnetl/internal/storage"
)

// setupMetrics installs the configured backend and returns the flush to run
// when the command ends. A backend that fails to start leaves metrics off.
func setupMetrics(p config.Pipeline, verbose bool) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "prometheus":
		var pb *prompush.Backend
		if pb, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL); err == nil {
			b = pb
		}
	case "datadog":
		var db *datadog.Backend
		if db, err = datadog.NewBackend(datadog.Config{Addr: p.Metrics.DatadogAddr}); err == nil {
			b = db
		}
	default:
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", p.Metrics.Backend)
		}
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", p.Metrics.Backend, err)
		return func() {}
	}

	metrics.SetBackend(b)
	log.Printf("metrics: backend=%s job=%s", p.Metrics.Backend, p.Job)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// openLedger opens the configured run ledger and makes sure its table
// exists. Ledger problems are logged and the run proceeds without one. The
// returned func releases the connection.
func openLedger(ctx context.Context, p config.Pipeline) ([]etl.Option, func()) {
	nop := func() {}
	if p.Ledger.Kind == "" {
		return nil, nop
	}
	repo, err := storage.New(ctx, storage.Config{Kind: p.Ledger.Kind, DSN: p.Ledger.DSN, Table: p.Ledger.Table})
	if err != nil {
		log.Printf("ledger: open %s: %v; continuing without ledger", p.Ledger.Kind, err)
		return nil, nop
	}
	if err := storage.EnsureLedgerTable(ctx, p.Ledger.Kind, repo, p.Ledger.Table); err != nil {
		repo.Close()
		log.Printf("ledger: %v; continuing without ledger", err)
		return nil, nop
	}
	log.Printf("ledger: kind=%s table=%s", p.Ledger.Kind, p.Ledger.Table)
	return []etl.Option{etl.WithLedger(repo)}, repo.Close
}
