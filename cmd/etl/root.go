package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"txnetl/internal/config"
	"txnetl/internal/report"
)

// rootOptions holds the persistent flags that are not config keys.
type rootOptions struct {
	cfgPath string
	envFile string
	verbose bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "txnetl",
		Short: "Validate, profile and clean transactional CSV exports",
		Long: `txnetl streams a transactional CSV export through a fixed data contract.

analyze folds every row into quality statistics and prints a report.
clean splits the rows into a clean file and a reject file annotated with
error codes.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log.SetOutput(cmd.ErrOrStderr())
			return loadEnvFile(opts.envFile, cmd.Flags().Changed("env-file"))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.cfgPath, "config", "c", "", "pipeline config file (YAML or JSON)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config; ignored when absent")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logs")
	addPipelineFlags(pf)

	_ = root.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{report.FormatText, report.FormatMarkdown, report.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("metrics", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"none", "prometheus", "datadog"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newAnalyzeCmd(opts),
		newCleanCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// addPipelineFlags declares one flag per config.FlagKeys entry. Defaults are
// shown for help only; a flag overrides the config just when it is set.
func addPipelineFlags(flags *pflag.FlagSet) {
	flags.String("job", config.DefaultJob, "job name for logs, metrics and the ledger")
	flags.StringP("input", "i", "", "input CSV path")
	flags.String("comma", ",", "field delimiter")
	flags.Bool("lazy-quotes", true, "accept bare quotes inside fields literally")
	flags.String("clean-out", "", "clean output path")
	flags.String("reject-out", "", "reject output path")
	flags.String("report-out", "", "report path (default stdout)")
	flags.StringP("format", "f", config.DefaultReportFormat, "report format: text, markdown or json")
	flags.Int("chunk-size", config.DefaultChunkSize, "rows per chunk")
	flags.Int64("max-rows", 0, "stop after this many rows (0 = all)")
	flags.Int("top-k", config.DefaultTopK, "values listed per categorical column")
	flags.IntP("workers", "w", config.DefaultWorkers, "parallel analyze workers")
	flags.Float64("tolerance", config.DefaultTotalTolerance, "total_amount tolerance")
	flags.String("metrics", "none", "metrics backend: none, prometheus or datadog")
	flags.String("ledger-kind", "", "run ledger backend: sqlite or postgres")
	flags.String("ledger-dsn", "", "run ledger DSN")
}

// loadEnvFile exports the variables of a dotenv file without overriding the
// environment. A missing file is only an error when it was asked for.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return fmt.Errorf("load env file: %w", err)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "txnetl %s\n", version)
		},
	}
}
