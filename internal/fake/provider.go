package fake

import "sync"

// Producer generates one value for a given keyed argument set, and reports
// its own accepted argument keywords and result DataType.
type Producer interface {
	// Keywords returns the full set of argument keys this producer accepts.
	Keywords() map[string]bool
	// DataType reports the SQL-ish shape of values this producer returns.
	DataType() DataType
	// Value produces a single value, given the already-validated args.
	Value(args map[string]string) (any, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Producer{}
)

// RegisterProvider adds a named producer constructor to the compiled-in
// registry, the replacement for the source ecosystem's dotted-path dynamic
// provider loading. Call from an init() in the provider's package, the same
// way dialect implementations register themselves.
func RegisterProvider(name string, ctor func() Producer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

func lookupProvider(name string) (Producer, bool) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// registeredProviderNames lists the provider constructors compiled in,
// snapshotted for testing.
func registeredProviderNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
