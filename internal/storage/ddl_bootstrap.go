package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLBootstrapper creates the run ledger table in a backend's dialect. It
// must be idempotent (CREATE TABLE IF NOT EXISTS).
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind. It is
// called from backend packages' init functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureLedgerTable runs the bootstrapper registered for kind.
func EnsureLedgerTable(ctx context.Context, kind string, repo Repository, table string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for ledger.kind=%q", kind)
	}
	return fn(ctx, repo, table)
}
