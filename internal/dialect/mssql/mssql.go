// Package mssql implements the MSSQL SQL factory.
package mssql

import (
	"fmt"
	"sort"
	"strings"

	"nonymizer/internal/dialect"
	"nonymizer/internal/strategy"
)

func init() {
	dialect.Register(dialect.MSSQL, func() dialect.Factory { return &Factory{} })
}

// Factory implements dialect.Factory for MSSQL.
type Factory struct {
	// AnsiWarningsOff wraps every UPDATE in SET ANSI_WARNINGS OFF/ON so
	// oversized fake strings are truncated rather than aborting the batch.
	AnsiWarningsOff bool
}

func (f *Factory) Name() dialect.Type { return dialect.MSSQL }

// QuoteIdentifier bracket-quotes an MSSQL identifier.
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteString escapes an MSSQL string literal.
func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (f *Factory) CreateDatabase(name string) string {
	// MSSQL creates the working database implicitly during RESTORE DATABASE;
	// this is retained for backends where CREATE must run explicitly.
	return fmt.Sprintf("IF DB_ID(%s) IS NULL CREATE DATABASE %s", QuoteString(name), QuoteIdentifier(name))
}

func (f *Factory) DropDatabase(name string) []string {
	return []string{
		fmt.Sprintf("ALTER DATABASE %s SET SINGLE_USER WITH ROLLBACK IMMEDIATE", QuoteIdentifier(name)),
		fmt.Sprintf("DROP DATABASE IF EXISTS %s", QuoteIdentifier(name)),
	}
}

func (f *Factory) TruncateTable(table strategy.Table) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", QuoteIdentifier(table.TableName))
}

func (f *Factory) DeleteTable(table strategy.Table) string {
	return fmt.Sprintf("DELETE FROM %s", QuoteIdentifier(table.TableName))
}

func (f *Factory) CreateSeedTable(seedTable string, qualifiers []string) (string, error) {
	if len(qualifiers) == 0 {
		return "", fmt.Errorf("create seed table: qualifier map is empty")
	}
	sorted := append([]string(nil), qualifiers...)
	sort.Strings(sorted)

	cols := make([]string, 0, len(sorted))
	for _, q := range sorted {
		cols = append(cols, fmt.Sprintf("%s NVARCHAR(MAX)", QuoteIdentifier(q)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdentifier(seedTable), strings.Join(cols, ", ")), nil
}

func (f *Factory) DropSeedTable(seedTable string) string {
	return fmt.Sprintf("IF OBJECT_ID(%s, 'U') IS NOT NULL DROP TABLE %s", QuoteString(seedTable), QuoteIdentifier(seedTable))
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

func (f *Factory) columnAssignment(seedTable, tableName string, col strategy.Column) (string, error) {
	quotedCol := QuoteIdentifier(col.ColumnName)
	switch col.Kind {
	case strategy.ColumnEmpty:
		return fmt.Sprintf("%s = ''", quotedCol), nil
	case strategy.ColumnUniqueLogin:
		return fmt.Sprintf("%s = CONVERT(NVARCHAR(36), NEWID())", quotedCol), nil
	case strategy.ColumnUniqueEmail:
		return fmt.Sprintf(
			"%s = CONCAT(CONVERT(NVARCHAR(36), NEWID()), '@', CONVERT(NVARCHAR(36), NEWID()), '.com')",
			quotedCol,
		), nil
	case strategy.ColumnLiteral:
		return fmt.Sprintf("%s = %s", quotedCol, col.Literal), nil
	case strategy.ColumnFakeUpdate:
		// The always-true predicate on the outer row's column correlates the
		// subquery, so it is evaluated (and NEWID() re-drawn) per updated row.
		outerCol := QuoteIdentifier(tableName) + "." + quotedCol
		subquery := fmt.Sprintf(
			"(SELECT TOP 1 %s FROM %s WHERE %s LIKE '%%' OR %s IS NULL ORDER BY NEWID())",
			QuoteIdentifier(col.Fake.Qualifier()),
			QuoteIdentifier(seedTable),
			outerCol,
			outerCol,
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
		stmt := fmt.Sprintf("UPDATE %s SET %s", QuoteIdentifier(table.TableName), strings.Join(assignments, ", "))
		if where != "" {
			stmt += " WHERE " + where
		}
		if f.AnsiWarningsOff {
			stmt = "SET ANSI_WARNINGS OFF; " + stmt + "; SET ANSI_WARNINGS ON;"
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func (f *Factory) DumpSizeEstimate(dbName string) string {
	return fmt.Sprintf(
		"SELECT SUM(size) * 8 * 1024 FROM sys.master_files WHERE database_id = DB_ID(%s)",
		QuoteString(dbName),
	)
}
