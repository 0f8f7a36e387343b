package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix scopes environment overrides. Nesting uses a double underscore:
// TXNETL_RUNTIME__CHUNK_SIZE sets runtime.chunk_size.
const EnvPrefix = "TXNETL_"

// FlagKeys maps CLI flag names to config keys. Only flags listed here and
// explicitly set on the command line override lower layers.
var FlagKeys = map[string]string{
	"job":         "job",
	"input":       "source.file.path",
	"comma":       "parser.options.comma",
	"lazy-quotes": "parser.options.lazy_quotes",
	"clean-out":   "output.clean_path",
	"reject-out":  "output.reject_path",
	"report-out":  "output.report_path",
	"format":      "output.report_format",
	"chunk-size":  "runtime.chunk_size",
	"max-rows":    "runtime.max_rows",
	"top-k":       "runtime.top_k",
	"workers":     "runtime.workers",
	"tolerance":   "validation.total_tolerance",
	"metrics":     "metrics.backend",
	"ledger-kind": "ledger.kind",
	"ledger-dsn":  "ledger.dsn",
}

// Defaults returns the bottom configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"job":                        DefaultJob,
		"source.kind":                "file",
		"parser.kind":                "csv",
		"parser.options.has_header":  true,
		"parser.options.comma":       ",",
		"parser.options.lazy_quotes": true,
		"output.report_format":       DefaultReportFormat,
		"runtime.chunk_size":         DefaultChunkSize,
		"runtime.max_rows":           0,
		"runtime.top_k":              DefaultTopK,
		"runtime.workers":            DefaultWorkers,
		"validation.total_tolerance": DefaultTotalTolerance,
		"metrics.backend":            "none",
		"ledger.table":               DefaultLedgerTable,
	}
}

// Load builds a Pipeline from, in increasing precedence: Defaults, the file
// at path (YAML or JSON; skipped when path is empty), TXNETL_ environment
// variables, and the flags in FlagKeys that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (Pipeline, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Pipeline{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Pipeline{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Pipeline{}, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Pipeline{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var p Pipeline
	if err := k.Unmarshal("", &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}

// envKey maps TXNETL_RUNTIME__CHUNK_SIZE to runtime.chunk_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
