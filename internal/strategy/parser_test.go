package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nonymizer/internal/fake"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	gen, err := fake.NewGenerator(fake.DefaultLocale, nil)
	require.NoError(t, err)
	return NewParser(gen)
}

func TestParse_ShorthandTableAndColumn(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  customer:
    type: update_columns
    columns:
      email: unique_email
      first_name: first_name
  sessions: truncate
`
	db, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.Len(t, db.Tables, 2)

	byName := map[string]Table{}
	for _, tbl := range db.Tables {
		byName[tbl.TableName] = tbl
	}

	customer := byName["customer"]
	require.Equal(t, TableUpdateColumns, customer.Kind)
	require.Len(t, customer.Columns, 2)

	sessions := byName["sessions"]
	require.Equal(t, TableTruncate, sessions.Kind)
}

func TestParse_LiteralColumnShorthand(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  accounts:
    type: update_columns
    columns:
      status: "(ACTIVE)"
`
	db, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.Equal(t, ColumnLiteral, db.Tables[0].Columns[0].Kind)
	require.Equal(t, "(ACTIVE)", db.Tables[0].Columns[0].Literal)
}

func TestParse_UnsupportedFakeTypeRejected(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  customer:
    type: update_columns
    columns:
      favorite_color: not_a_real_fake_method
`
	_, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, KindUnsupportedFakeType, pe.Kind)
}

func TestParse_UnknownTableStrategyRejected(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  customer: bogus_strategy
`
	_, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, KindUnknownTableStrategy, pe.Kind)
}

func TestParse_DoesNotMutateInput(t *testing.T) {
	p := newTestParser(t)
	root := map[string]any{
		"tables": map[string]any{
			"customer": map[string]any{
				"type": "truncate",
			},
		},
	}
	before := root["tables"].(map[string]any)["customer"].(map[string]any)["type"]

	_, err := p.Parse(root)
	require.NoError(t, err)

	after := root["tables"].(map[string]any)["customer"].(map[string]any)["type"]
	require.Equal(t, before, after)
}

func TestParse_MappingFormPreservesTableDeclarationOrder(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  zebras: truncate
  apples: truncate
  mangos: truncate
  bears: truncate
`
	db, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)

	names := make([]string, len(db.Tables))
	for i, tbl := range db.Tables {
		names[i] = tbl.TableName
	}
	require.Equal(t, []string{"zebras", "apples", "mangos", "bears"}, names)
}

func TestParse_MappingFormPreservesColumnDeclarationOrder(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  customer:
    type: update_columns
    columns:
      zip_code: empty
      email: unique_email
      last_name: empty
      first_name: empty
`
	db, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.Len(t, db.Tables, 1)

	names := make([]string, len(db.Tables[0].Columns))
	for i, col := range db.Tables[0].Columns {
		names[i] = col.ColumnName
	}
	require.Equal(t, []string{"zip_code", "email", "last_name", "first_name"}, names)
}

func TestParse_DuplicateUpdateColumnsTableRejected(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  - table_name: customer
    type: update_columns
    columns:
      - column_name: email
        type: unique_email
  - table_name: customer
    type: update_columns
    columns:
      - column_name: first_name
        type: empty
`
	_, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.Error(t, err)
}

func TestParse_JSONMappingFormPreservesTableDeclarationOrder(t *testing.T) {
	p := newTestParser(t)
	jsonDoc := `{"tables": {"zebras": "truncate", "apples": "truncate", "mangos": "truncate"}}`
	db, err := p.ParseJSON(strings.NewReader(jsonDoc))
	require.NoError(t, err)

	names := make([]string, len(db.Tables))
	for i, tbl := range db.Tables {
		names[i] = tbl.TableName
	}
	require.Equal(t, []string{"zebras", "apples", "mangos"}, names)
}

func TestPeekLocaleAndProviders_ReadsBothFieldsFromDecodedRoot(t *testing.T) {
	root, err := decodeYAML(strings.NewReader(`
locale: de_DE
providers:
  - uuid4
tables:
  customer: truncate
`))
	require.NoError(t, err)

	locale, providers := PeekLocaleAndProviders(root)
	require.Equal(t, "de_DE", locale)
	require.Equal(t, []string{"uuid4"}, providers)
}

func TestPeekLocaleAndProviders_DefaultsWhenAbsent(t *testing.T) {
	root, err := decodeYAML(strings.NewReader(`tables: {}`))
	require.NoError(t, err)

	locale, providers := PeekLocaleAndProviders(root)
	require.Equal(t, fake.DefaultLocale, locale)
	require.Nil(t, providers)
}

func TestParse_WhereGroupingPreservesDuplicateColumnNames(t *testing.T) {
	p := newTestParser(t)
	yamlDoc := `
tables:
  orders:
    type: update_columns
    columns:
      - column_name: total
        type: literal
        value: "(0)"
        where: "status = 'cancelled'"
      - column_name: total
        type: literal
        value: "(1)"
        where: "status = 'active'"
`
	db, err := p.ParseYAML(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	require.Len(t, db.Tables[0].Columns, 2)
}
