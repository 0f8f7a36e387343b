// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:runs.db?cache=shared"
	//   ":memory:"
	DSN string

	// Table is the target table for inserts. FQN values such as
	// "main.txnetl_runs" are accepted and quoted per segment.
	Table string
}
