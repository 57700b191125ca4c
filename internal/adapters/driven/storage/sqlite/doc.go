// Package sqlite provides a SQLite-based implementation of the
// driven.DocumentStore interface.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory and embedded at compile time.
//
// # Data Location
//
// By default, the database is stored at ~/.quarry/data/documents.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
