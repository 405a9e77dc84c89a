// Package providers holds compiled-in custom fake providers, registered
// against the fake package's registry from their own init() — the
// replacement for the source ecosystem's dotted-path dynamic provider
// loading. Strategy files opt into one via the root-level providers: list.
package providers

import (
	"github.com/google/uuid"

	"nonymizer/internal/fake"
)

func init() {
	fake.RegisterProvider("uuid4", func() fake.Producer { return uuidProvider{} })
}

// uuidProvider produces a random RFC 4122 UUID, useful for surrogate-key
// style columns that need values unique enough not to collide in practice
// but don't need the unique_login/unique_email shorthand's pseudo-UUID
// rendering.
type uuidProvider struct{}

func (uuidProvider) Keywords() map[string]bool { return map[string]bool{} }
func (uuidProvider) DataType() fake.DataType    { return fake.String }
func (uuidProvider) Value(map[string]string) (any, error) {
	return uuid.NewString(), nil
}
