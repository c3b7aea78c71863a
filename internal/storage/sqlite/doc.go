// Package sqlitestore wraps database/sql over github.com/mattn/go-sqlite3.
//
// Errors coming out of the driver are marked with persist.ErrDuplicate
// (unique/primary key violations) or persist.ErrTransient (busy/locked), and
// DB.Exec implements persist.Executor by retrying only the transient class
// with exponential backoff. Counter is the sqlite-backed high-water mark store
// for the id allocator.
package sqlitestore
