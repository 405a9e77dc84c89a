package strategy

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"nonymizer/internal/fake"
)

// Parser normalizes and validates a strategy config tree into a Database,
// checking every FakeUpdate column against a fake.Generator's capability set.
type Parser struct {
	fakeGen *fake.Generator
}

// NewParser builds a Parser bound to the given fake generator.
func NewParser(fakeGen *fake.Generator) *Parser {
	return &Parser{fakeGen: fakeGen}
}

// ParseFile decodes path by its extension (.yml/.yaml, .json, .toml) and
// parses the result.
func (p *Parser) ParseFile(path string) (*Database, error) {
	root, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(root)
}

// DecodeFile decodes path by its extension (.yml/.yaml, .json, .toml) into a
// raw config tree, without validating it against any fake.Generator. Callers
// that need the strategy's locale/providers before building a Generator (so
// a FakeUpdate column naming a custom provider can validate correctly) should
// decode via this function, inspect the result with PeekLocaleAndProviders,
// then call Parse once with the already-decoded root.
func DecodeFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		return decodeYAML(f)
	case ".json":
		return decodeJSON(f)
	case ".toml":
		return decodeTOML(f)
	default:
		return nil, &ParseError{Kind: KindConfigSyntax, Node: path}
	}
}

// PeekLocaleAndProviders extracts the locale/providers fields from an
// already-decoded root, the same way Parse does, without validating any
// table or column against a fake.Generator.
func PeekLocaleAndProviders(root map[string]any) (locale string, providers []string) {
	locale = fake.DefaultLocale
	if l, ok := root["locale"].(string); ok && l != "" {
		locale = l
	}
	if raw, ok := root["providers"].([]any); ok {
		for _, pr := range raw {
			if s, ok := pr.(string); ok {
				providers = append(providers, s)
			}
		}
	}
	return locale, providers
}

// ParseYAML decodes a YAML strategy document and parses it.
func (p *Parser) ParseYAML(r io.Reader) (*Database, error) {
	root, err := decodeYAML(r)
	if err != nil {
		return nil, err
	}
	return p.Parse(root)
}

// ParseJSON decodes a JSON strategy document and parses it.
func (p *Parser) ParseJSON(r io.Reader) (*Database, error) {
	root, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}
	return p.Parse(root)
}

// ParseTOML decodes a supplemental TOML strategy document and parses it.
func (p *Parser) ParseTOML(r io.Reader) (*Database, error) {
	root, err := decodeTOML(r)
	if err != nil {
		return nil, err
	}
	return p.Parse(root)
}

// decodeYAML decodes into a plain map for locale/providers/scripts lookup,
// but replaces root["tables"] (and, via the recursive node walk, any nested
// "columns") with an OrderedMap when given as a mapping, so declaration
// order survives for the shorthand form exactly as it does for the sequence
// form.
func decodeYAML(r io.Reader) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "<root>", Err: err}
	}
	var root map[string]any
	if err := doc.Decode(&root); err != nil {
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "<root>", Err: err}
	}
	if tablesNode := findYAMLValue(&doc, "tables"); tablesNode != nil && tablesNode.Kind == yaml.MappingNode {
		root["tables"] = yamlNodeToOrdered(tablesNode)
	}
	return root, nil
}

// decodeJSON mirrors decodeYAML's order preservation for the JSON format by
// re-walking the raw bytes' "tables" field through the decoder's token
// stream when it's an object.
func decodeJSON(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "<root>", Err: err}
	}
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "<root>", Err: err}
	}
	if ordered, ok, err := orderedJSONField(data, "tables"); err == nil && ok {
		if _, isOrderedMap := ordered.(OrderedMap); isOrderedMap {
			root["tables"] = ordered
		}
	}
	return root, nil
}

// decodeTOML decodes via BurntSushi/toml, which has no order-preserving
// decode hook; the mapping form of tables:/columns: in a TOML strategy file
// iterates in randomized order. Prefer YAML/JSON, or the sequence form, for
// order-sensitive TOML strategies.
func decodeTOML(r io.Reader) (map[string]any, error) {
	var root map[string]any
	if _, err := toml.NewDecoder(r).Decode(&root); err != nil {
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "<root>", Err: err}
	}
	return root, nil
}

// Parse normalizes and validates an already-decoded config tree. It never
// mutates root.
func (p *Parser) Parse(root map[string]any) (*Database, error) {
	db := &Database{
		Locale: fake.DefaultLocale,
	}

	if locale, ok := root["locale"].(string); ok && locale != "" {
		db.Locale = locale
	}
	if providers, ok := root["providers"].([]any); ok {
		for _, pr := range providers {
			if s, ok := pr.(string); ok {
				db.Providers = append(db.Providers, s)
			}
		}
	}
	if scripts, ok := asMap(root["scripts"]); ok {
		db.BeforeScripts = stringSlice(scripts["before"])
		db.AfterScripts = stringSlice(scripts["after"])
	}

	tablesRaw, ok := root["tables"]
	if !ok {
		return db, nil
	}
	rawTables, err := normalizeTables(tablesRaw)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rawTables))
	for _, rt := range rawTables {
		table, err := p.buildTable(rt)
		if err != nil {
			return nil, err
		}
		if table.Kind == TableUpdateColumns {
			// Truncate/Delete duplicates of the same table are permitted by
			// the sequence form (e.g. truncate then later delete); only
			// UpdateColumns entries collide, since two of them would run
			// conflicting per-column update passes against the same rows.
			key := table.QualifiedName()
			if seen[key] {
				return nil, &ParseError{Kind: KindConfigSyntax, Node: key}
			}
			seen[key] = true
		}
		db.Tables = append(db.Tables, table)
	}
	return db, nil
}

func (p *Parser) buildTable(rt rawTable) (Table, error) {
	t := Table{TableName: rt.TableName, Schema: rt.Schema}

	switch rt.Type {
	case "truncate":
		t.Kind = TableTruncate
		return t, nil
	case "delete":
		t.Kind = TableDelete
		return t, nil
	case "update_columns":
		t.Kind = TableUpdateColumns
	default:
		return t, &ParseError{Kind: KindUnknownTableStrategy, Node: rt.TableName}
	}

	if len(rt.Columns) == 0 {
		return t, &ParseError{Kind: KindConfigSyntax, Node: rt.TableName}
	}

	seenColumns := make(map[string]bool, len(rt.Columns))
	for _, rc := range rt.Columns {
		col, err := p.buildColumn(rt.TableName, rc)
		if err != nil {
			return t, err
		}
		dupKey := col.ColumnName + "\x00" + col.Where
		if seenColumns[dupKey] {
			return t, &ParseError{Kind: KindConfigSyntax, Node: rt.TableName + "." + col.ColumnName}
		}
		seenColumns[dupKey] = true
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

func (p *Parser) buildColumn(tableName string, rc rawColumn) (Column, error) {
	c := Column{ColumnName: rc.ColumnName, Where: rc.Where}
	node := tableName + "." + rc.ColumnName

	switch rc.Type {
	case "empty":
		c.Kind = ColumnEmpty
	case "unique_login":
		c.Kind = ColumnUniqueLogin
	case "unique_email":
		c.Kind = ColumnUniqueEmail
	case "literal":
		c.Kind = ColumnLiteral
		c.Literal = rc.Literal
	case "fake_update":
		c.Kind = ColumnFakeUpdate
		c.SQLType = rc.SQLType
		if !p.fakeGen.Supports(rc.FakeType, rc.FakeArgs) {
			if !fakeMethodExists(p.fakeGen, rc.FakeType) {
				return c, &ParseError{Kind: KindUnsupportedFakeType, Node: node}
			}
			return c, &ParseError{Kind: KindUnsupportedFakeArgs, Node: node}
		}
		c.Fake = fakeSpecOf(rc.FakeType, rc.FakeArgs)
	default:
		return c, &ParseError{Kind: KindUnknownColumnStrategy, Node: node}
	}
	return c, nil
}

func fakeMethodExists(g *fake.Generator, method string) bool {
	return g.Supports(method, nil)
}

func fakeSpecOf(method string, args map[string]string) fake.Spec {
	return fake.Spec{Method: method, Args: args}
}

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
