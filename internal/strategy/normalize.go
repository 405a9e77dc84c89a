package strategy

import (
	"regexp"
	"strings"
)

var literalPattern = regexp.MustCompile(`^\(.*\)$`)

// rawTable is the normalized shape of one table entry: always carries an
// explicit table_name and type, regardless of the shorthand the user wrote.
type rawTable struct {
	TableName string
	Schema    string
	Type      string
	Columns   []rawColumn
}

// rawColumn is the normalized shape of one column entry.
type rawColumn struct {
	ColumnName string
	Type       string
	FakeType   string
	FakeArgs   map[string]string
	Where      string
	SQLType    string
	Literal    string
}

// normalizeTables accepts either a mapping {name: body} or a sequence of
// {table_name: name, ...} and returns the sequence form. It never mutates
// its input: every value copied out is a fresh structure.
func normalizeTables(raw any) ([]rawTable, error) {
	switch v := raw.(type) {
	case OrderedMap:
		out := make([]rawTable, 0, len(v))
		for _, name := range v.Names() {
			body, _ := v.Get(name)
			t, err := normalizeTableBody(name, "", body)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	case map[string]any:
		// No order-preserving decode was available for this format (e.g.
		// TOML); keys iterate in randomized Go map order.
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		out := make([]rawTable, 0, len(v))
		for _, name := range names {
			t, err := normalizeTableBody(name, "", v[name])
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	case []any:
		out := make([]rawTable, 0, len(v))
		for _, item := range v {
			body, ok := asMap(item)
			if !ok {
				return nil, &ParseError{Kind: KindConfigSyntax, Node: "tables"}
			}
			name, _ := body["table_name"].(string)
			schema, _ := body["schema"].(string)
			t, err := normalizeTableBody(name, schema, item)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	default:
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "tables"}
	}
}

func normalizeTableBody(name, schema string, body any) (rawTable, error) {
	t := rawTable{TableName: name, Schema: schema}

	switch raw := body.(type) {
	case string:
		t.Type = strings.ToLower(strings.TrimSpace(raw))
	case map[string]any, OrderedMap:
		b, _ := asMap(raw)
		if s, ok := b["schema"].(string); ok {
			t.Schema = s
		}
		if typ, ok := b["type"].(string); ok {
			t.Type = strings.ToLower(strings.TrimSpace(typ))
		} else if _, ok := b["columns"]; ok {
			t.Type = "update_columns"
		} else {
			return t, &ParseError{Kind: KindUnknownTableStrategy, Node: name}
		}

		if t.Type == "update_columns" {
			// Read columns from the original (possibly order-preserving)
			// value, not the plain-map copy, so normalizeColumns still sees
			// an OrderedMap when the source declared one.
			var cols any
			if om, ok := raw.(OrderedMap); ok {
				cols, _ = om.Get("columns")
			} else {
				cols = b["columns"]
			}
			if cols == nil {
				return t, &ParseError{Kind: KindConfigSyntax, Node: name}
			}
			normCols, err := normalizeColumns(cols)
			if err != nil {
				return t, err
			}
			t.Columns = normCols
		} else if _, hasCols := b["columns"]; hasCols {
			return t, &ParseError{Kind: KindConfigSyntax, Node: name}
		}
	default:
		return t, &ParseError{Kind: KindUnknownTableStrategy, Node: name}
	}

	switch t.Type {
	case "truncate", "delete", "update_columns":
	default:
		return t, &ParseError{Kind: KindUnknownTableStrategy, Node: name}
	}
	return t, nil
}

func normalizeColumns(raw any) ([]rawColumn, error) {
	switch v := raw.(type) {
	case OrderedMap:
		out := make([]rawColumn, 0, len(v))
		for _, name := range v.Names() {
			body, _ := v.Get(name)
			c, err := normalizeColumnBody(name, body)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case map[string]any:
		// No order-preserving decode was available for this format (e.g.
		// TOML); keys iterate in randomized Go map order.
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		out := make([]rawColumn, 0, len(v))
		for _, name := range names {
			c, err := normalizeColumnBody(name, v[name])
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case []any:
		out := make([]rawColumn, 0, len(v))
		for _, item := range v {
			body, ok := asMap(item)
			if !ok {
				return nil, &ParseError{Kind: KindConfigSyntax, Node: "columns"}
			}
			name, _ := body["column_name"].(string)
			c, err := normalizeColumnBody(name, item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	default:
		return nil, &ParseError{Kind: KindConfigSyntax, Node: "columns"}
	}
}

func normalizeColumnBody(name string, body any) (rawColumn, error) {
	c := rawColumn{ColumnName: name}

	switch b := body.(type) {
	case string:
		switch b {
		case "empty":
			c.Type = "empty"
		case "unique_email":
			c.Type = "unique_email"
		case "unique_login":
			c.Type = "unique_login"
		default:
			if literalPattern.MatchString(b) {
				c.Type = "literal"
				c.Literal = b
			} else {
				c.Type = "fake_update"
				c.FakeType = b
			}
		}
	case map[string]any, OrderedMap:
		bm, _ := asMap(b)
		typ, ok := bm["type"].(string)
		if !ok {
			return c, &ParseError{Kind: KindUnknownColumnStrategy, Node: name}
		}
		c.Type = strings.ToLower(strings.TrimSpace(typ))
		if w, ok := bm["where"].(string); ok {
			c.Where = w
		}
		if st, ok := bm["sql_type"].(string); ok {
			c.SQLType = st
		}
		if ft, ok := bm["fake_type"].(string); ok {
			c.FakeType = ft
		}
		if fa, ok := asMap(bm["fake_args"]); ok {
			c.FakeArgs = stringifyArgs(fa)
		}
		if lit, ok := bm["value"].(string); ok {
			c.Literal = lit
		}
	default:
		return c, &ParseError{Kind: KindUnknownColumnStrategy, Node: name}
	}

	switch c.Type {
	case "empty", "unique_email", "unique_login", "literal", "fake_update":
	default:
		return c, &ParseError{Kind: KindUnknownColumnStrategy, Node: name}
	}
	return c, nil
}

func stringifyArgs(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = toString(v)
	}
	return out
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmtAny(t)
	}
}
