package engine

import (
	"fmt"

	"go.uber.org/multierr"
)

// TableError names the table a per-table anonymize operation failed on.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %q: %v", e.Table, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// AnonymizationError aggregates every per-table failure from one engine run.
type AnonymizationError struct {
	Errors []*TableError
}

func (e *AnonymizationError) Error() string {
	var combined error
	for _, te := range e.Errors {
		combined = multierr.Append(combined, te)
	}
	return fmt.Sprintf("anonymization failed for %d table(s): %v", len(e.Errors), combined)
}
