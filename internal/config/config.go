// Package config defines the configuration model for txnetl runs and the
// layered loader that fills it.
//
// A run file may be YAML or JSON (YAML is a superset). Example (trimmed):
//
//	job: nightly-transactions
//	source: { kind: file, file: { path: data/transactions.csv } }
//	parser: { kind: csv, options: { has_header: true, comma: "," } }
//	output:
//	  clean_path: out/clean.csv
//	  reject_path: out/reject.csv
//	  report_format: text
//	runtime: { chunk_size: 200000, workers: 4 }
//	validation: { total_tolerance: 0.05 }
//	ledger: { kind: sqlite, dsn: "file:runs.db", table: txnetl_runs }
package config

import "encoding/json"

// Defaults applied by Load before any file, env or flag layer.
const (
	DefaultJob            = "txnetl"
	DefaultChunkSize      = 200_000
	DefaultTopK           = 25
	DefaultWorkers        = 1
	DefaultTotalTolerance = 0.05
	DefaultReportFormat   = "text"
	DefaultLedgerTable    = "txnetl_runs"
)

// Pipeline is the full run configuration.
type Pipeline struct {
	// Job names the run in logs, metrics and the ledger.
	Job string `json:"job" koanf:"job"`

	Source     Source        `json:"source" koanf:"source"`
	Parser     Parser        `json:"parser" koanf:"parser"`
	Output     Output        `json:"output" koanf:"output"`
	Runtime    RuntimeConfig `json:"runtime" koanf:"runtime"`
	Validation Validation    `json:"validation" koanf:"validation"`
	Metrics    Metrics       `json:"metrics" koanf:"metrics"`
	Ledger     Ledger        `json:"ledger" koanf:"ledger"`
}

// Source identifies the data source. Current kind: "file".
type Source struct {
	Kind string     `json:"kind" koanf:"kind"`
	File SourceFile `json:"file" koanf:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" koanf:"path"`
}

// Parser selects how to parse the raw source. Current kind: "csv".
type Parser struct {
	Kind string `json:"kind" koanf:"kind"`

	// Options is interpreted by the parser. For CSV:
	//   comma (string), has_header (bool), lazy_quotes (bool),
	//   null_markers ([]string), columns ([]string, headerless input)
	Options Options `json:"options" koanf:"options"`
}

// Output names the files a run writes.
type Output struct {
	CleanPath  string `json:"clean_path" koanf:"clean_path"`
	RejectPath string `json:"reject_path" koanf:"reject_path"`

	// ReportPath is where analyze writes its report; empty means stdout.
	ReportPath string `json:"report_path" koanf:"report_path"`
	// ReportFormat is one of text, markdown, json.
	ReportFormat string `json:"report_format" koanf:"report_format"`
}

// RuntimeConfig bounds memory and parallelism.
type RuntimeConfig struct {
	ChunkSize int   `json:"chunk_size" koanf:"chunk_size"`
	MaxRows   int64 `json:"max_rows" koanf:"max_rows"`
	TopK      int   `json:"top_k" koanf:"top_k"`
	// Workers > 1 analyzes chunks in parallel. Clean runs stay sequential.
	Workers int `json:"workers" koanf:"workers"`
}

// Validation tunes classification and the clean-mode preparation steps.
type Validation struct {
	TotalTolerance float64 `json:"total_tolerance" koanf:"total_tolerance"`

	// Canonical is column -> (spelling -> display). Nil uses the built-in table.
	Canonical map[string]map[string]string `json:"canonical" koanf:"canonical"`

	// FillMissing is column -> value for null cells. Nil uses the built-in
	// fills (region_code -> UNKNOWN).
	FillMissing map[string]string `json:"fill_missing" koanf:"fill_missing"`
}

// Metrics selects a metrics backend: none, prometheus or datadog.
type Metrics struct {
	Backend        string `json:"backend" koanf:"backend"`
	PushgatewayURL string `json:"pushgateway_url" koanf:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" koanf:"datadog_addr"`
}

// Ledger configures the run ledger. An empty Kind disables it.
type Ledger struct {
	Kind  string `json:"kind" koanf:"kind"`
	DSN   string `json:"dsn" koanf:"dsn"`
	Table string `json:"table" koanf:"table"`
}

// Options fetches typed values from a free-form options bag decoded from
// JSON, YAML or flags. It performs only minimal type coercion and returns the
// provided default when a key is absent or of an unexpected type.
type Options map[string]any

// Has reports whether key is present, even with a null or empty value.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json yields float64 and
// YAML yields int or int64; all three are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
