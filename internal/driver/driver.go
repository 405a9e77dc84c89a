// Package driver wraps invocation of each backend's native client tools
// and/or network driver behind one common contract the engine and pipeline
// depend on.
package driver

import (
	"context"
	"fmt"
	"io"
)

// Driver is the common per-backend contract. Backends whose restore/dump is
// not streamable (MSSQL) implement RestoreFromPath/DumpToPath instead of
// OpenRestoreSink/OpenDumpSource; callers select based on Streamable().
type Driver interface {
	// Execute runs statement(s) outside the working database.
	Execute(ctx context.Context, stmt string) error
	// DBExecute runs statement(s) inside the working database.
	DBExecute(ctx context.Context, stmt string) error
	// SingleResult returns one scalar cell decoded as text.
	SingleResult(ctx context.Context, stmt string) (string, error)
	// TestConnection reports whether the backend is reachable.
	TestConnection(ctx context.Context) bool
	// Close releases any held subprocess or connection.
	Close() error

	// Streamable reports whether OpenRestoreSink/OpenDumpSource are usable
	// for this backend (true for MySQL/PostgreSQL, false for MSSQL).
	Streamable() bool
	// OpenRestoreSink returns a writable stream for raw restore bytes.
	OpenRestoreSink(ctx context.Context) (io.WriteCloser, error)
	// OpenDumpSource returns a readable stream of raw dump bytes.
	OpenDumpSource(ctx context.Context) (io.ReadCloser, error)

	// RestoreFromPath performs a file-level restore (MSSQL).
	RestoreFromPath(ctx context.Context, path string) error
	// DumpToPath performs a file-level dump (MSSQL).
	DumpToPath(ctx context.Context, path string) error

	// DumpSizeEstimate returns a best-effort size estimate for progress
	// reporting; ok is false when unknown.
	DumpSizeEstimate(ctx context.Context) (size int64, ok bool)
}

// DependencyError is surfaced when a required client tool is missing from
// PATH or exits non-zero; it names the offending tool so the operator can
// fix their environment instead of reading a stack trace.
type DependencyError struct {
	Tool string
	Err  error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %q failed: %v", e.Tool, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Config carries the connection parameters common to every backend. Any
// field may be empty; drivers MUST fall through to the backend's native
// credential resolution (.my.cnf, .pgpass, integrated security) rather than
// failing on an empty field.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string

	ExtraCmdOpts  string
	ExtraDumpOpts string

	// MSSQLBackupCompression requests WITH COMPRESSION on BACKUP DATABASE.
	// Ignored by every other backend.
	MSSQLBackupCompression bool
}
