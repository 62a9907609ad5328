// Package sqlite provides a SQLite-backed implementation of the
// driven.VectorStore port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Embeddings are stored as
// little-endian float32 blobs; SQLite has no similarity function, so Match
// reports itself unavailable and callers rank client-side over Scan.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.ragline/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
