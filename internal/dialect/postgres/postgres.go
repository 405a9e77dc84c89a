// Package postgres implements the PostgreSQL SQL factory.
package postgres

import (
	"fmt"
	"sort"
	"strings"

	"nonymizer/internal/dialect"
	"nonymizer/internal/strategy"
)

func init() {
	dialect.Register(dialect.PostgreSQL, func() dialect.Factory { return &Factory{} })
}

// Factory implements dialect.Factory for PostgreSQL.
type Factory struct{}

func (f *Factory) Name() dialect.Type { return dialect.PostgreSQL }

// QuoteIdentifier double-quotes a Postgres identifier, doubling any embedded
// double quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString escapes a Postgres string literal (standard_conforming_strings
// semantics: a doubled quote is the only escape needed).
func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (f *Factory) CreateDatabase(name string) string {
	return fmt.Sprintf("CREATE DATABASE %s", QuoteIdentifier(name))
}

// DropDatabase terminates other sessions connected to the database before
// dropping it, since Postgres refuses to drop a database with open
// connections.
func (f *Factory) DropDatabase(name string) []string {
	return []string{
		fmt.Sprintf(
			"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = %s AND pid <> pg_backend_pid()",
			QuoteString(name),
		),
		fmt.Sprintf("DROP DATABASE IF EXISTS %s", QuoteIdentifier(name)),
	}
}

func (f *Factory) TruncateTable(table strategy.Table) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", QuoteIdentifier(table.TableName))
}

func (f *Factory) DeleteTable(table strategy.Table) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", QuoteIdentifier(table.TableName))
}

func (f *Factory) CreateSeedTable(seedTable string, qualifiers []string) (string, error) {
	if len(qualifiers) == 0 {
		return "", fmt.Errorf("create seed table: qualifier map is empty")
	}
	sorted := append([]string(nil), qualifiers...)
	sort.Strings(sorted)

	cols := make([]string, 0, len(sorted)+1)
	cols = append(cols, `"_id" SERIAL NOT NULL PRIMARY KEY`)
	for _, q := range sorted {
		cols = append(cols, fmt.Sprintf("%s TEXT", QuoteIdentifier(q)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(seedTable), strings.Join(cols, ", ")), nil
}

func (f *Factory) DropSeedTable(seedTable string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdentifier(seedTable))
}

func (f *Factory) InsertSeedRow(seedTable string, values map[string]any) string {
	cols := make([]string, 0, len(values))
	for k := range values {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	quotedCols := make([]string, 0, len(cols))
	literals := make([]string, 0, len(cols))
	for _, c := range cols {
		quotedCols = append(quotedCols, QuoteIdentifier(c))
		literals = append(literals, literalOf(values[c]))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(seedTable),
		strings.Join(quotedCols, ", "),
		strings.Join(literals, ", "),
	)
}

func literalOf(v any) string {
	switch t := v.(type) {
	case string:
		return QuoteString(t)
	case nil:
		return "NULL"
	default:
		return QuoteString(fmt.Sprintf("%v", t))
	}
}

// pseudoRandomIndex deterministically selects a seed row keyed on the outer
// row, via an MD5 of the outer row's own text form, defeating per-query-plan
// caching of a plain scalar subquery.
func pseudoRandomIndex(seedTable string) string {
	return fmt.Sprintf(
		"(ABS(('x' || MD5(updatetarget::text))::bit(32)::int) %% (SELECT COUNT(*) FROM %s)) + 1",
		QuoteIdentifier(seedTable),
	)
}

func uniqueExpr(seedTable string) string {
	return fmt.Sprintf("MD5(random()::text || clock_timestamp()::text)")
}

func (f *Factory) columnAssignment(seedTable, tableName string, col strategy.Column) (string, error) {
	quotedCol := QuoteIdentifier(col.ColumnName)
	switch col.Kind {
	case strategy.ColumnEmpty:
		return fmt.Sprintf("%s = ''", quotedCol), nil
	case strategy.ColumnUniqueLogin:
		return fmt.Sprintf("%s = %s", quotedCol, uniqueExpr(seedTable)), nil
	case strategy.ColumnUniqueEmail:
		return fmt.Sprintf("%s = CONCAT(%s, '@', %s, '.com')", quotedCol, uniqueExpr(seedTable), uniqueExpr(seedTable)), nil
	case strategy.ColumnLiteral:
		return fmt.Sprintf("%s = %s", quotedCol, col.Literal), nil
	case strategy.ColumnFakeUpdate:
		subquery := fmt.Sprintf(
			"(SELECT %s FROM %s WHERE %s._id = %s)",
			QuoteIdentifier(col.Fake.Qualifier()),
			QuoteIdentifier(seedTable),
			QuoteIdentifier(seedTable),
			pseudoRandomIndex(seedTable),
		)
		if col.SQLType != "" {
			subquery = fmt.Sprintf("CAST(%s AS %s)", subquery, col.SQLType)
		}
		return fmt.Sprintf("%s = %s", quotedCol, subquery), nil
	default:
		return "", fmt.Errorf("%s: unsupported column strategy", col.ColumnName)
	}
}

func (f *Factory) UpdateTable(seedTable string, table strategy.Table) ([]string, error) {
	groups := table.GroupByWhere()

	wheres := make([]string, 0, len(groups))
	for w := range groups {
		wheres = append(wheres, w)
	}
	sort.Strings(wheres)

	statements := make([]string, 0, len(wheres))
	for _, where := range wheres {
		cols := groups[where]
		assignments := make([]string, 0, len(cols))
		for _, col := range cols {
			a, err := f.columnAssignment(seedTable, table.TableName, col)
			if err != nil {
				return nil, err
			}
			assignments = append(assignments, a)
		}
		stmt := fmt.Sprintf(
			"UPDATE %s AS updatetarget SET %s",
			QuoteIdentifier(table.TableName),
			strings.Join(assignments, ", "),
		)
		if where != "" {
			stmt += " WHERE " + where
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func (f *Factory) DumpSizeEstimate(dbName string) string {
	return fmt.Sprintf("SELECT pg_database_size(%s)", QuoteString(dbName))
}
