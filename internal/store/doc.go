// Package store provides the namespaced key-value storage tabsaver keeps its
// identifier registry and tab collections in.
//
// # Architecture
//
// KV is the only interface the rest of the module sees:
//
//   - Get / Set / Remove: plain reads and last-writer-wins writes
//   - CompareAndSwap: version-checked single-key write
//   - Subscribe: change stream, one Change per committed mutation
//
// SQLiteStore implements KV on a SQLite file. MockStore implements it in
// memory for unit tests.
//
// # Versions
//
// Every key carries a version that starts at 1 and increases on each write.
// CompareAndSwap with expected version 0 creates a key that must not exist.
//
// # Change Events
//
// Each mutation appends a row to change_log inside the same transaction, so
// a change is recorded if and only if the write committed. In-process writes
// are published right after commit. With Options.Watch enabled, an fsnotify
// watcher on the database directory polls change_log whenever the database
// or its WAL is written, which surfaces writes made by other processes
// sharing the file. A dedupe cache keyed by change ID keeps a change from
// being delivered twice.
//
// Subscribers see changes from every namespace stored in the file; Change
// carries the namespace so consumers can filter.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// # Error Handling
//
//   - ErrNotFound: requested key does not exist
//   - ErrVersionConflict: CompareAndSwap lost a race
//   - ErrClosed: operation on a closed store
//
// All methods accept context.Context for cancellation support.
package store
