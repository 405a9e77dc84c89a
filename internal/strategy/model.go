// Package strategy holds the normalized, validated in-memory representation
// of an anonymization run: what to do to each table and column, derived from
// a user-authored YAML, JSON, or TOML config tree.
package strategy

import "nonymizer/internal/fake"

// ColumnKind is the closed set of column strategy variants.
type ColumnKind int

const (
	ColumnEmpty ColumnKind = iota
	ColumnUniqueLogin
	ColumnUniqueEmail
	ColumnLiteral
	ColumnFakeUpdate
)

// Column is a tagged-variant column strategy. Only the fields relevant to
// Kind are populated; this is the exhaustive match site consumed by the SQL
// factories.
type Column struct {
	Kind       ColumnKind
	ColumnName string
	Where      string // optional predicate, column-level

	Literal string // ColumnLiteral: the literal SQL text, pasted verbatim

	Fake    fake.Spec // ColumnFakeUpdate
	SQLType string    // ColumnFakeUpdate: optional CAST target type
}

// TableKind is the closed set of table strategy variants.
type TableKind int

const (
	TableTruncate TableKind = iota
	TableDelete
	TableUpdateColumns
)

// Table is a tagged-variant table strategy.
type Table struct {
	Kind      TableKind
	TableName string
	Schema    string // optional

	Columns []Column // TableUpdateColumns only, non-empty
}

// QualifiedName renders "schema.table" when Schema is set, else "table".
func (t Table) QualifiedName() string {
	if t.Schema != "" {
		return t.Schema + "." + t.TableName
	}
	return t.TableName
}

// GroupByWhere partitions a TableUpdateColumns table's columns by their
// Where predicate; the empty-string key collects columns with no predicate.
func (t Table) GroupByWhere() map[string][]Column {
	groups := make(map[string][]Column)
	for _, c := range t.Columns {
		groups[c.Where] = append(groups[c.Where], c)
	}
	return groups
}

// Database is the full, immutable, parsed strategy: the order of Tables is
// preserved from the source config, and scripts are opaque SQL strings run
// once each, in order, around the per-table anonymize phase.
type Database struct {
	Tables        []Table
	BeforeScripts []string
	AfterScripts  []string
	Locale        string
	Providers     []string
}

// FakeTypes collects the distinct fake.Spec qualifiers referenced by every
// FakeUpdate column across every UpdateColumns table, keyed by qualifier.
func (d Database) FakeTypes() map[string]fake.Spec {
	out := make(map[string]fake.Spec)
	for _, t := range d.Tables {
		if t.Kind != TableUpdateColumns {
			continue
		}
		for _, c := range t.Columns {
			if c.Kind == ColumnFakeUpdate {
				out[c.Fake.Qualifier()] = c.Fake
			}
		}
	}
	return out
}
