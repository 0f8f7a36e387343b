// This file holds a linter for Pipeline values. It performs static checks and
// returns issues (errors and warnings) that the CLI surfaces.
package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"txnetl/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "runtime.chunk_size").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Err joins the error-severity issues; nil when there are none.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

// Modes accepted by ValidateFor.
const (
	ModeAnalyze = "analyze"
	ModeClean   = "clean"
)

// ValidatePipeline lints the settings shared by every mode. It does not
// mutate p.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs, metrics and ledger rows",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateValidation(p.Validation)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateLedger(p.Ledger)...)
	return issues
}

// ValidateFor lints p for one mode: ValidatePipeline plus the outputs that
// mode writes.
func ValidateFor(p Pipeline, mode string) []Issue {
	issues := ValidatePipeline(p)
	switch mode {
	case ModeAnalyze:
		issues = append(issues, validateReport(p.Output)...)
	case ModeClean:
		issues = append(issues, validateCleanOutputs(p.Output)...)
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "mode",
			Message:  fmt.Sprintf("unknown mode %q; want analyze or clean", mode),
		})
	}
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	}
	if s.Kind != "file" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q; only file is available", s.Kind),
		})
	}
	if strings.TrimSpace(s.File.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.file.path",
			Message:  "file source requires a non-empty path",
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
	}
	if p.Kind != "csv" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; only csv is available", p.Kind),
		})
	}

	if comma := p.Options.String("comma", ","); utf8.RuneCountInString(comma) != 1 ||
		comma == "\"" || comma == "\r" || comma == "\n" || comma == string(utf8.RuneError) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  fmt.Sprintf("comma %q must be a single character other than quote or newline", comma),
		})
	}

	if !p.Options.Bool("has_header", true) {
		cols := p.Options.StringSlice("columns")
		if len(cols) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.columns",
				Message:  "has_header is false; columns must name the fields positionally",
			})
		}
		contract := schema.Transactions()
		for _, c := range cols {
			if _, ok := contract.Field(c); !ok {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     "parser.options.columns",
					Message:  fmt.Sprintf("column %q is not part of the transaction contract; it will pass through unchecked", c),
				})
			}
		}
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.ChunkSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_size",
			Message:  fmt.Sprintf("chunk_size=%d; must be positive", r.ChunkSize),
		})
	}
	if r.MaxRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.max_rows",
			Message:  "max_rows must not be negative; 0 means no cap",
		})
	}
	if r.TopK <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.top_k",
			Message:  fmt.Sprintf("top_k=%d; must be positive", r.TopK),
		})
	}
	if r.Workers < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  fmt.Sprintf("workers=%d; must be at least 1", r.Workers),
		})
	}
	return issues
}

func validateValidation(v Validation) []Issue {
	var issues []Issue

	if v.TotalTolerance < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "validation.total_tolerance",
			Message:  "total_tolerance must not be negative",
		})
	}
	contract := schema.Transactions()
	for col := range v.Canonical {
		if f, ok := contract.Field(col); !ok || f.Kind != schema.KindCategorical {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "validation.canonical." + col,
				Message:  fmt.Sprintf("%q is not a categorical column; mapping has no effect on collisions", col),
			})
		}
	}
	for col := range v.FillMissing {
		if _, ok := contract.Field(col); !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "validation.fill_missing." + col,
				Message:  fmt.Sprintf("%q is not part of the transaction contract", col),
			})
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires a pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires a datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want none, prometheus or datadog", m.Backend),
		})
	}
	return issues
}

func validateLedger(l Ledger) []Issue {
	var issues []Issue

	switch l.Kind {
	case "":
		return nil
	case "sqlite", "postgres":
	default:
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "ledger.kind",
			Message:  fmt.Sprintf("unknown ledger kind %q; want sqlite or postgres", l.Kind),
		})
	}
	if strings.TrimSpace(l.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ledger.dsn",
			Message:  "ledger.dsn must not be empty when ledger.kind is set",
		})
	}
	if strings.TrimSpace(l.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ledger.table",
			Message:  "ledger.table must not be empty when ledger.kind is set",
		})
	}
	return issues
}

func validateReport(o Output) []Issue {
	switch o.ReportFormat {
	case "text", "markdown", "json":
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "output.report_format",
		Message:  fmt.Sprintf("unknown report format %q; want text, markdown or json", o.ReportFormat),
	}}
}

func validateCleanOutputs(o Output) []Issue {
	var issues []Issue

	if strings.TrimSpace(o.CleanPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.clean_path",
			Message:  "clean mode requires output.clean_path",
		})
	}
	if strings.TrimSpace(o.RejectPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.reject_path",
			Message:  "clean mode requires output.reject_path",
		})
	}
	if o.CleanPath != "" && o.CleanPath == o.RejectPath {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.reject_path",
			Message:  "reject_path must differ from clean_path",
		})
	}
	return issues
}
