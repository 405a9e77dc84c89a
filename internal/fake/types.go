// Package fake provides the value source used to seed a working database
// with fake data: a locale-aware library of named producers, each accepting
// an optional keyed argument set, extensible with compiled-in custom
// providers registered at init time.
package fake

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DataType is the SQL-ish shape of a value a producer returns.
type DataType int

const (
	String DataType = iota
	Int
	Date
	DateTime
)

func (d DataType) String() string {
	switch d {
	case Int:
		return "INT"
	case Date:
		return "DATE"
	case DateTime:
		return "DATETIME"
	default:
		return "STRING"
	}
}

// Spec names a single fake-value specification: a method plus its keyed
// arguments. Two Specs with the same method but different args MUST produce
// distinct Qualifiers.
type Spec struct {
	Method string
	Args   map[string]string
}

// Qualifier is a deterministic, args-aware identifier for this Spec, stable
// across runs, at most 64 characters, suitable as a seed-table column name.
func (s Spec) Qualifier() string {
	if len(s.Args) == 0 {
		return truncate(s.Method, 64)
	}
	keys := make([]string, 0, len(s.Args))
	for k := range s.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s_%s", k, s.Args[k]))
	}
	sum := md5.Sum([]byte(strings.Join(parts, "_")))
	qualifier := s.Method + "_" + hex.EncodeToString(sum[:])
	return truncate(qualifier, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
