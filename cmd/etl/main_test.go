package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txnetl/internal/config"
	"txnetl/internal/etl"
	"txnetl/internal/quality"
)

const inputCSV = `transaction_id,customer_id,quantity,unit_price,discount_percent,tax_rate,total_amount,email,country,region_code
TXN0000000001,CUST00001,2,10,10,5,18.9,a@example.com,turkey,EU
TXN0000000002,CUST00002,-1,10,0,0,0,b@example.com,Germany,
TXN0000000003,CUST00003,1,5,0,0,5,not-an-email,France,EU
`

/*
execute runs the CLI with args and returns stdout, stderr and the error.
The env file is disabled so a stray .env in the package directory cannot
leak into the run.
*/
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(path, []byte(inputCSV), 0o644))
	return path, dir
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"source", fmt.Errorf("%w: open x: missing", etl.ErrSourceIO), exitSourceIO},
		{"output", fmt.Errorf("%w: disk full", etl.ErrOutput), exitOutput},
		{"config", errors.New("invalid configuration"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestEveryFlagKeyHasAFlag(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	for name := range config.FlagKeys {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "txnetl dev\n", out)
}

func TestAnalyzeJSONReport(t *testing.T) {
	in, dir := writeInput(t)
	reportPath := filepath.Join(dir, "reports", "quality.json")

	_, _, err := execute(t, "analyze", in, "--format", "json", "--report-out", reportPath, "--workers", "2")
	require.NoError(t, err)

	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep quality.Report
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, int64(3), rep.Rows)
	assert.Equal(t, int64(1), rep.Clean)
	assert.Equal(t, int64(2), rep.Rejected)
}

func TestAnalyzeTextToStdout(t *testing.T) {
	in, _ := writeInput(t)
	out, _, err := execute(t, "analyze", "--input", in)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "INVALID_EMAIL")
}

func TestAnalyzeMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "analyze", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, exitSourceIO, exitCode(err))
}

func TestCleanWithLedger(t *testing.T) {
	in, dir := writeInput(t)
	cleanPath := filepath.Join(dir, "out", "clean.csv")
	rejectPath := filepath.Join(dir, "out", "reject.csv")
	ledgerPath := filepath.Join(dir, "ledger.db")

	out, _, err := execute(t, "clean", in,
		"--clean-out", cleanPath, "--reject-out", rejectPath,
		"--ledger-kind", "sqlite", "--ledger-dsn", ledgerPath,
		"--job", "nightly")
	require.NoError(t, err)

	assert.Contains(t, out, "clean:  "+cleanPath+" (1 rows")
	assert.Contains(t, out, "reject: "+rejectPath+" (2 rows")
	assert.Contains(t, out, "Top rejection reasons")
	assert.FileExists(t, cleanPath)
	assert.FileExists(t, rejectPath)

	db, err := sql.Open("sqlite", ledgerPath)
	require.NoError(t, err)
	defer db.Close()
	var (
		job      string
		rejected int64
	)
	require.NoError(t, db.QueryRow(`SELECT job, rejected_rows FROM txnetl_runs WHERE mode = 'clean'`).Scan(&job, &rejected))
	assert.Equal(t, "nightly", job)
	assert.Equal(t, int64(2), rejected)
}

func TestCleanRequiresOutputs(t *testing.T) {
	in, _ := writeInput(t)
	_, stderr, err := execute(t, "clean", in)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, stderr, "output.clean_path")
	assert.Contains(t, stderr, "output.reject_path")
}

func TestCleanOutputFailure(t *testing.T) {
	in, dir := writeInput(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, _, err := execute(t, "clean", in,
		"--clean-out", filepath.Join(blocker, "clean.csv"),
		"--reject-out", filepath.Join(dir, "reject.csv"))
	require.Error(t, err)
	assert.Equal(t, exitOutput, exitCode(err))
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
job: nightly
source:
  file:
    path: data/transactions.csv
output:
  clean_path: out/clean.csv
  reject_path: out/reject.csv
`), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
source:
  file:
    path: data/transactions.csv
runtime:
  workers: 0
`), 0o644))

	t.Run("valid", func(t *testing.T) {
		out, _, err := execute(t, "config", "validate", "--config", good, "--mode", "clean")
		require.NoError(t, err)
		assert.Contains(t, out, "configuration is valid")
	})
	t.Run("invalid", func(t *testing.T) {
		_, stderr, err := execute(t, "config", "validate", "--config", bad)
		require.Error(t, err)
		assert.Contains(t, stderr, "runtime.workers")
	})
	t.Run("missing outputs for clean", func(t *testing.T) {
		_, _, err := execute(t, "config", "validate", "--config", bad, "--mode", "clean", "--workers", "1")
		require.Error(t, err)
	})
}

func TestEnvFile(t *testing.T) {
	in, dir := writeInput(t)
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TXNETL_OUTPUT__REPORT_FORMAT=bogus\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TXNETL_OUTPUT__REPORT_FORMAT") })

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"analyze", in, "--env-file", envPath})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "output.report_format")
}

func TestEnvFileMissing(t *testing.T) {
	in, dir := writeInput(t)
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"analyze", in, "--env-file", filepath.Join(dir, "absent.env")})
	require.Error(t, cmd.ExecuteContext(context.Background()))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "absent.env"), false))
}
