// Package jsonldb provides a generic, concurrent-safe, JSONL-backed data store.
//
// # Overview
//
// [Table] stores rows in a JSONL (JSON Lines) file with full in-memory
// caching. Reads never touch the disk. Appends write one line; updates and
// deletes rewrite the file through a temporary file and a rename.
//
// # Concurrency
//
// [Table.Modify] holds the write lock for the whole read-modify-write, so it
// never needs retries. Contention is low for a single-node inventory store.
//
// # Secondary Indexes
//
// [UniqueIndex] and [Index] provide O(1) lookups by arbitrary keys, staying
// synchronized with table mutations via [TableObserver].
//
// # File Format
//
// Line 1 is a schema header describing the columns of the row type. Every
// other line is one JSON row. Rows are sorted by ID on load.
package jsonldb
