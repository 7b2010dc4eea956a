// Package sqlite keeps documents and vector records in one SQLite file,
// ~/.docrag/data/docrag.db by default, using the pure Go modernc.org/sqlite
// driver.
//
// The objects table backs driven.DocumentStore. The vectors table is the
// durable copy the in-process HNSW index is rebuilt from at startup. The
// database runs in WAL mode with a busy timeout, so the CLI, the MCP server
// and the watcher can share it. Schema changes live in migrations/.
package sqlite
