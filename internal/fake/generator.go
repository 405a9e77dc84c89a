package fake

import (
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"
)

// DefaultLocale matches the source ecosystem's default.
const DefaultLocale = "en_GB"

// Generator is the value source described by the fake generator contract:
// Supports, DataType, Value, all indexed by method name plus keyed args.
//
// locale is accepted and recorded for config-surface compatibility (the
// strategy file's locale: field) but gofakeit/v7's Faker has no
// locale-scoped generation hook to bind it to: NewFaker takes only a
// rand.Source and a crypto flag, and its data tables (names, addresses,
// words) are fixed at compile time with no per-instance locale selector.
// Every locale therefore currently produces the same English-language value
// distribution; Locale() exists so callers/tests can observe what was
// requested without it silently vanishing.
type Generator struct {
	locale    string
	faker     *gofakeit.Faker
	providers map[string]Producer
}

// Locale returns the locale this Generator was built with. See the type
// doc comment: it does not currently affect Value's output.
func (g *Generator) Locale() string { return g.locale }

// NewGenerator builds a Generator for the given locale, pre-loading the
// requested compiled-in custom providers. An unknown provider name is a
// configuration error surfaced to the caller, not a silent no-op.
func NewGenerator(locale string, providerNames []string) (*Generator, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	g := &Generator{
		locale:    locale,
		faker:     gofakeit.NewFaker(rand.NewSource(gofakeit.GlobalFaker.Rand.Int63()), false),
		providers: make(map[string]Producer, len(providerNames)),
	}
	for _, name := range providerNames {
		p, ok := lookupProvider(name)
		if !ok {
			return nil, &UnsupportedTypeError{Method: name}
		}
		g.providers[name] = p
	}
	return g, nil
}

// Supports reports whether method exists (builtin or custom) and every key
// in args is one of its accepted keywords.
func (g *Generator) Supports(method string, args map[string]string) bool {
	if bm, ok := builtinMethods[method]; ok {
		return keywordsAccept(bm.keywords, args)
	}
	if p, ok := g.providers[method]; ok {
		return keywordsAccept(p.Keywords(), args)
	}
	return false
}

// DataType reports the SQL-ish shape method's values take. Unknown methods
// default to String, matching the source ecosystem's permissive lookup.
func (g *Generator) DataType(method string) DataType {
	if bm, ok := builtinMethods[method]; ok {
		return bm.dataType
	}
	if p, ok := g.providers[method]; ok {
		return p.DataType()
	}
	return String
}

// Value produces one value for method under args.
func (g *Generator) Value(method string, args map[string]string) (any, error) {
	if bm, ok := builtinMethods[method]; ok {
		if !keywordsAccept(bm.keywords, args) {
			return nil, unsupportedArg(method, bm.keywords, args)
		}
		return bm.value(g.faker, args)
	}
	if p, ok := g.providers[method]; ok {
		if !keywordsAccept(p.Keywords(), args) {
			return nil, unsupportedArg(method, p.Keywords(), args)
		}
		return p.Value(args)
	}
	return nil, &UnsupportedTypeError{Method: method}
}

func keywordsAccept(accepted map[string]bool, args map[string]string) bool {
	for k := range args {
		if !accepted[k] {
			return false
		}
	}
	return true
}

func unsupportedArg(method string, accepted map[string]bool, args map[string]string) error {
	for k := range args {
		if !accepted[k] {
			return &UnsupportedArgumentsError{Method: method, Arg: k}
		}
	}
	return nil
}
