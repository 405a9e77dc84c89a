package fake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGenerator_RecordsRequestedLocale(t *testing.T) {
	g, err := NewGenerator("de_DE", nil)
	require.NoError(t, err)
	require.Equal(t, "de_DE", g.Locale(), "locale is recorded even though gofakeit has no hook to apply it")
}

func TestNewGenerator_EmptyLocaleDefaults(t *testing.T) {
	g, err := NewGenerator("", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultLocale, g.Locale())
}

func TestNewGenerator_UnknownProviderIsConfigError(t *testing.T) {
	_, err := NewGenerator(DefaultLocale, []string{"does_not_exist"})
	require.Error(t, err)
	var target *UnsupportedTypeError
	require.ErrorAs(t, err, &target)
}

func TestSupports_BuiltinMethodAcceptsItsOwnKeywords(t *testing.T) {
	g, err := NewGenerator(DefaultLocale, nil)
	require.NoError(t, err)
	require.True(t, g.Supports("random_int", map[string]string{"min": "1", "max": "10"}))
	require.False(t, g.Supports("random_int", map[string]string{"bogus_kw": "1"}))
}

func TestSupports_UnknownMethodRejected(t *testing.T) {
	g, err := NewGenerator(DefaultLocale, nil)
	require.NoError(t, err)
	require.False(t, g.Supports("not_a_real_method", nil))
}

func TestValue_BuiltinMethodProducesNonNilResult(t *testing.T) {
	g, err := NewGenerator(DefaultLocale, nil)
	require.NoError(t, err)
	v, err := g.Value("first_name", nil)
	require.NoError(t, err)
	require.NotEmpty(t, v)
}

func TestValue_UnsupportedArgSurfacesArgumentError(t *testing.T) {
	g, err := NewGenerator(DefaultLocale, nil)
	require.NoError(t, err)
	_, err = g.Value("first_name", map[string]string{"bogus_kw": "1"})
	require.Error(t, err)
	var target *UnsupportedArgumentsError
	require.ErrorAs(t, err, &target)
}

type stubProvider struct{}

func (stubProvider) Keywords() map[string]bool      { return map[string]bool{"width": true} }
func (stubProvider) DataType() DataType             { return String }
func (stubProvider) Value(map[string]string) (any, error) { return "stub-value", nil }

func TestRegisterProvider_IsUsableOnceRegistered(t *testing.T) {
	RegisterProvider("test_stub_provider", func() Producer { return stubProvider{} })

	g, err := NewGenerator(DefaultLocale, []string{"test_stub_provider"})
	require.NoError(t, err)
	require.True(t, g.Supports("test_stub_provider", map[string]string{"width": "10"}))

	v, err := g.Value("test_stub_provider", nil)
	require.NoError(t, err)
	require.Equal(t, "stub-value", v)
}
