// Command txnetl validates, profiles and cleans transactional CSV exports.
//
//	txnetl analyze --input data.csv --format markdown
//	txnetl clean --config pipeline.yaml
//	txnetl config validate --config pipeline.yaml --mode clean
//
// Exit status: 0 on success, 2 when the input cannot be opened or read,
// 3 when an output cannot be created or written, 1 for anything else
// (including invalid configuration).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"txnetl/internal/etl"

	// register all ledger backends with the storage factory.
	_ "txnetl/internal/storage/all"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK       = 0
	exitFailure  = 1
	exitSourceIO = 2
	exitOutput   = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, etl.ErrSourceIO):
		return exitSourceIO
	case errors.Is(err, etl.ErrOutput):
		return exitOutput
	}
	return exitFailure
}
