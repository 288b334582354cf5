// Package sqlite provides a unified SQLite-based implementation of the
// metadata ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database connection pool serves:
//
//   - ChunkStore: active chunk metadata
//   - ArchiveIndex: archived chunk metadata and sizes
//   - PurgeLog: the audit trail of purged chunks
//   - InsightStore: insights
//   - SessionStore: sessions, their chunks and the current session
//   - SchedulerStore: scheduled task state and history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// The database is stored as metadata.db inside the data directory, by
// default ~/.rlm.
//
// # Concurrency
//
// The database runs in WAL mode and every transaction begins IMMEDIATE, so
// read-modify-write cycles (ChunkStore.Update, InsightStore.Update) hold the
// write lock from their first read to their commit, across processes.
package sqlite
