// Package storage provides SQLite-based persistence for the passage
// library.
//
// The storage layer manages:
//   - Passages with their source locations and embedding vectors
//   - The indexing ledger (per-file pending/indexing/completed/failed)
//   - Session history of passages already surfaced to the reader
//   - Saved passages
//   - Usage events
//
// # Database Schema
//
// Tables:
//   - passages: Passage text, source location, metadata, embedding blob
//   - indexing_status: Per-file indexing ledger keyed by path
//   - session_history: When each passage was last shown
//   - saved_passages: Passages the reader chose to keep
//   - usage_events: Append-only action log
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/library/passages.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	passage, err := store.RandomPassage(ctx, &cutoff)
//
// Embeddings are stored as little-endian float32 blobs; similarity is
// computed in Go over deserialized vectors.
//
// # Build Tags
//
// The package supports two build configurations:
//
// Pure Go build (default): uses modernc.org/sqlite, no C compiler
// needed.
//
// CGO build (cgo_sqlite tag): uses github.com/mattn/go-sqlite3,
// faster on large libraries.
package storage
