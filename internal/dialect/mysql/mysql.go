// Package mysql implements the MySQL SQL factory.
package mysql

import (
	"fmt"
	"sort"
	"strings"

	"nonymizer/internal/dialect"
	"nonymizer/internal/strategy"
)

func init() {
	dialect.Register(dialect.MySQL, func() dialect.Factory { return &Factory{} })
}

// Factory implements dialect.Factory for MySQL.
type Factory struct{}

func (f *Factory) Name() dialect.Type { return dialect.MySQL }

// QuoteIdentifier backtick-quotes a MySQL identifier, doubling any embedded
// backtick.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteString escapes a MySQL string literal per the standard MySQL escape
// sequences.
func QuoteString(value string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range value {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func (f *Factory) CreateDatabase(name string) string {
	return fmt.Sprintf("CREATE DATABASE %s", QuoteIdentifier(name))
}

func (f *Factory) DropDatabase(name string) []string {
	return []string{fmt.Sprintf("DROP DATABASE IF EXISTS %s", QuoteIdentifier(name))}
}

func (f *Factory) TruncateTable(table strategy.Table) string {
	return fmt.Sprintf(
		"SET FOREIGN_KEY_CHECKS=0; TRUNCATE TABLE %s; SET FOREIGN_KEY_CHECKS=1;",
		QuoteIdentifier(table.TableName),
	)
}

func (f *Factory) DeleteTable(table strategy.Table) string {
	return fmt.Sprintf(
		"SET FOREIGN_KEY_CHECKS=0; DELETE FROM %s; SET FOREIGN_KEY_CHECKS=1;",
		QuoteIdentifier(table.TableName),
	)
}

func (f *Factory) CreateSeedTable(seedTable string, qualifiers []string) (string, error) {
	if len(qualifiers) == 0 {
		return "", fmt.Errorf("create seed table: qualifier map is empty")
	}
	sorted := append([]string(nil), qualifiers...)
	sort.Strings(sorted)

	cols := make([]string, 0, len(sorted))
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

// randMD5 is the per-row pseudo-unique expression behind unique_login and
// unique_email, kept as a workaround for MySQL bug #89474. The fake_update
// subquery does not use it; that one is a plain ORDER BY RAND() LIMIT 1.
const randMD5 = "MD5(FLOOR((NOW() + RAND()) * (RAND() * RAND() / RAND()) + RAND()))"

func (f *Factory) columnAssignment(seedTable string, col strategy.Column) (string, error) {
	quotedCol := QuoteIdentifier(col.ColumnName)
	switch col.Kind {
	case strategy.ColumnEmpty:
		return fmt.Sprintf("%s = ''", quotedCol), nil
	case strategy.ColumnUniqueLogin:
		return fmt.Sprintf("%s = %s", quotedCol, randMD5), nil
	case strategy.ColumnUniqueEmail:
		return fmt.Sprintf("%s = CONCAT(%s, '@', %s, '.com')", quotedCol, randMD5, randMD5), nil
	case strategy.ColumnLiteral:
		return fmt.Sprintf("%s = %s", quotedCol, col.Literal), nil
	case strategy.ColumnFakeUpdate:
		subquery := fmt.Sprintf(
			"(SELECT %s FROM %s ORDER BY RAND() LIMIT 1)",
			QuoteIdentifier(col.Fake.Qualifier()),
			QuoteIdentifier(seedTable),
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
			a, err := f.columnAssignment(seedTable, col)
			if err != nil {
				return nil, err
			}
			assignments = append(assignments, a)
		}
		stmt := fmt.Sprintf("UPDATE %s SET %s", QuoteIdentifier(table.TableName), strings.Join(assignments, ", "))
		if where != "" {
			stmt += " WHERE " + where
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func (f *Factory) DumpSizeEstimate(dbName string) string {
	return fmt.Sprintf(
		"SELECT SUM(data_length + index_length) FROM information_schema.tables WHERE table_schema = %s",
		QuoteString(dbName),
	)
}
