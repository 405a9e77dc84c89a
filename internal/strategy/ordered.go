package strategy

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// orderedEntry is one key/value pair of an OrderedMap.
type orderedEntry struct {
	Key   string
	Value any
}

// OrderedMap is a mapping decoded with its key order preserved, the shape
// normalizeTables/normalizeColumns need so the shorthand mapping form of
// tables:/columns: gets the same declaration-order guarantee the sequence
// form gets for free from Go slices.
type OrderedMap []orderedEntry

// Names returns the keys in document order.
func (m OrderedMap) Names() []string {
	names := make([]string, len(m))
	for i, e := range m {
		names[i] = e.Key
	}
	return names
}

// Get returns the value for key and whether it was present.
func (m OrderedMap) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// ToMap discards order, for callers that only need keyed lookup.
func (m OrderedMap) ToMap() map[string]any {
	out := make(map[string]any, len(m))
	for _, e := range m {
		out[e.Key] = e.Value
	}
	return out
}

// findYAMLValue returns the value node for key within doc's top-level
// mapping, or nil if doc isn't a mapping or key isn't present.
func findYAMLValue(doc *yaml.Node, key string) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return findYAMLValue(doc.Content[0], key)
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		var k string
		if err := doc.Content[i].Decode(&k); err == nil && k == key {
			return doc.Content[i+1]
		}
	}
	return nil
}

// yamlNodeToOrdered converts a YAML node subtree into plain Go values,
// representing every mapping as an OrderedMap instead of collapsing it into
// a randomly-iterated map[string]any.
func yamlNodeToOrdered(node *yaml.Node) any {
	switch node.Kind {
	case yaml.MappingNode:
		m := make(OrderedMap, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var k string
			_ = node.Content[i].Decode(&k)
			m = append(m, orderedEntry{Key: k, Value: yamlNodeToOrdered(node.Content[i+1])})
		}
		return m
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			out = append(out, yamlNodeToOrdered(item))
		}
		return out
	default:
		var v any
		_ = node.Decode(&v)
		return v
	}
}

// orderedJSONValue is the JSON analog of yamlNodeToOrdered, walking the
// decoder's token stream so a `{...}` decodes to an OrderedMap rather than
// json.Unmarshal's randomly-iterated map[string]any.
func orderedJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		m := OrderedMap{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			val, err := orderedJSONValue(dec)
			if err != nil {
				return nil, err
			}
			m = append(m, orderedEntry{Key: key, Value: val})
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return m, nil
	case '[':
		out := []any{}
		for dec.More() {
			val, err := orderedJSONValue(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected JSON delimiter %q", delim)
	}
}

// orderedJSONField re-walks data looking only for root[key], returning its
// value decoded via orderedJSONValue so a mapping-form tables:/columns:
// object keeps its declaration order. Returns ok=false if root isn't an
// object or key isn't present.
func orderedJSONField(data []byte, key string) (value any, ok bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if d, isDelim := tok.(json.Delim); !isDelim || d != '{' {
		return nil, false, nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false, err
		}
		k, _ := keyTok.(string)
		if k == key {
			val, err := orderedJSONValue(dec)
			if err != nil {
				return nil, false, err
			}
			return val, true, nil
		}
		var skip any
		if err := dec.Decode(&skip); err != nil {
			return nil, false, err
		}
	}
	return nil, false, nil
}

// asMap accepts either a plain map or an OrderedMap and returns a plain map
// for callers that only need keyed lookup, not declaration order.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case OrderedMap:
		return m.ToMap(), true
	default:
		return nil, false
	}
}
