// Package all wires the built-in storage backends into the storage factory.
//
// It exists purely for side effects: importing it runs each backend's init,
// which registers its factory and ledger DDL bootstrapper. After the import
// the kinds "postgres" and "sqlite" are available through storage.New.
package all

import (
	_ "txnetl/internal/storage/postgres"
	_ "txnetl/internal/storage/sqlite"
)
