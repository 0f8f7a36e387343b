package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"txnetl/internal/config"
	"txnetl/internal/etl"
	"txnetl/internal/metrics"
	"txnetl/internal/quality"
	"txnetl/internal/report"
)

// maxReasonsShown bounds the reject-reason table printed after a clean run.
const maxReasonsShown = 10

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [input]",
		Short: "Profile the input and print a data quality report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(cmd, opts, config.ModeAnalyze, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			flush := setupMetrics(p, opts.verbose)
			defer flush()

			ledger, closeLedger := openLedger(ctx, p)
			defer closeLedger()

			runner := etl.NewRunner(p, ledger...)
			res, err := runner.Analyze(ctx)
			if err != nil {
				return err
			}

			start := time.Now()
			err = writeReport(cmd.OutOrStdout(), p.Output, res.Report)
			metrics.RecordStep(p.Job, config.ModeAnalyze, "report", err, time.Since(start))
			return err
		},
	}
}

func newCleanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [input]",
		Short: "Split the input into clean and reject files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(cmd, opts, config.ModeClean, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			flush := setupMetrics(p, opts.verbose)
			defer flush()

			ledger, closeLedger := openLedger(ctx, p)
			defer closeLedger()

			runner := etl.NewRunner(p, ledger...)
			sum, err := runner.Clean(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %s rows processed in %s\n",
				sum.ID, humanize.Comma(sum.Rows), sum.Finished.Sub(sum.Started).Truncate(time.Millisecond))
			fmt.Fprintf(out, "clean:  %s (%s rows, xxh3 %s)\n", sum.CleanPath, humanize.Comma(sum.Clean), sum.CleanDigest)
			fmt.Fprintf(out, "reject: %s (%s rows, xxh3 %s)\n", sum.RejectPath, humanize.Comma(sum.Rejected), sum.RejectDigest)
			if sum.Unparseable > 0 {
				fmt.Fprintf(out, "kept %s malformed lines\n", humanize.Comma(sum.Unparseable))
			}
			if len(sum.Codes) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			codes := sum.Codes
			if len(codes) > maxReasonsShown {
				codes = codes[:maxReasonsShown]
			}
			return report.WriteRejectReasons(out, sum.Rows, codes)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the pipeline configuration",
	}

	var mode string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Lint the merged configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.Load(opts.cfgPath, cmd.Flags())
			if err != nil {
				return err
			}
			var issues []config.Issue
			if mode == "" {
				issues = config.ValidatePipeline(p)
			} else {
				issues = config.ValidateFor(p, mode)
			}
			printIssues(cmd.ErrOrStderr(), issues)
			if err := config.Err(issues); err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
	validate.Flags().StringVar(&mode, "mode", "", "also check the outputs of one mode: analyze or clean")

	cmd.AddCommand(validate)
	return cmd
}

// loadPipeline merges the config layers, applies a positional input, and
// lints the result for mode. Warnings are printed; errors abort.
func loadPipeline(cmd *cobra.Command, opts *rootOptions, mode string, args []string) (config.Pipeline, error) {
	if len(args) == 1 {
		if err := cmd.Flags().Set("input", args[0]); err != nil {
			return config.Pipeline{}, err
		}
	}
	p, err := config.Load(opts.cfgPath, cmd.Flags())
	if err != nil {
		return config.Pipeline{}, err
	}
	issues := config.ValidateFor(p, mode)
	printIssues(cmd.ErrOrStderr(), issues)
	if err := config.Err(issues); err != nil {
		return config.Pipeline{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.verbose {
		log.Printf("pipeline: job=%s mode=%s input=%s chunk_size=%d workers=%d ledger=%q metrics=%q",
			p.Job, mode, p.Source.File.Path, p.Runtime.ChunkSize, p.Runtime.Workers, p.Ledger.Kind, p.Metrics.Backend)
	}
	return p, nil
}

func printIssues(w io.Writer, issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}

// writeReport renders rep to output.report_path, or to stdout when unset.
func writeReport(stdout io.Writer, o config.Output, rep quality.Report) error {
	if o.ReportPath == "" {
		return report.Write(stdout, o.ReportFormat, rep)
	}
	if err := os.MkdirAll(filepath.Dir(o.ReportPath), 0o755); err != nil {
		return fmt.Errorf("%w: create report dir: %w", etl.ErrOutput, err)
	}
	f, err := os.Create(o.ReportPath)
	if err != nil {
		return fmt.Errorf("%w: create report: %w", etl.ErrOutput, err)
	}
	if err := report.Write(f, o.ReportFormat, rep); err != nil {
		f.Close()
		return fmt.Errorf("%w: write report: %w", etl.ErrOutput, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close report: %w", etl.ErrOutput, err)
	}
	log.Printf("report: wrote %s format=%s", o.ReportPath, o.ReportFormat)
	return nil
}
