// Package dialect is the SQL factory: pure, side-effect-free functions
// mapping strategy nodes to backend-specific SQL strings. Each backend
// registers itself from an init() in its own subpackage, the same registry
// pattern used elsewhere in this tree for pluggable backends.
package dialect

import (
	"fmt"
	"sync"

	"nonymizer/internal/strategy"
)

// Type names one of the supported database backends.
type Type string

const (
	MySQL      Type = "mysql"
	PostgreSQL Type = "postgres"
	MSSQL      Type = "mssql"
)

// Factory is the SQL factory contract for one backend. Every method returns
// plain SQL text (or a sequence of statements); none perform I/O.
type Factory interface {
	Name() Type

	CreateDatabase(name string) string
	DropDatabase(name string) []string

	TruncateTable(table strategy.Table) string
	DeleteTable(table strategy.Table) string

	CreateSeedTable(seedTable string, qualifiers []string) (string, error)
	DropSeedTable(seedTable string) string
	InsertSeedRow(seedTable string, values map[string]any) string

	UpdateTable(seedTable string, table strategy.Table) ([]string, error)

	DumpSizeEstimate(dbName string) string
}

var (
	registryMu sync.RWMutex
	registry   = map[Type]func() Factory{}
)

// Register adds a backend factory constructor to the registry. Called from
// each backend subpackage's init().
func Register(t Type, ctor func() Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = ctor
}

// Get returns a fresh Factory for the named backend.
func Get(t Type) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ctor, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("dialect %q is not registered", t)
	}
	return ctor(), nil
}
