package fake

import "testing"

import "github.com/stretchr/testify/require"

func TestQualifier_StableAndUnique(t *testing.T) {
	a := Spec{Method: "random_int", Args: map[string]string{"min": "1", "max": "10"}}
	b := Spec{Method: "random_int", Args: map[string]string{"min": "1", "max": "20"}}
	c := Spec{Method: "random_int", Args: map[string]string{"min": "1", "max": "10"}}

	require.NotEqual(t, a.Qualifier(), b.Qualifier(), "distinct args must produce distinct qualifiers")
	require.Equal(t, a.Qualifier(), c.Qualifier(), "identical args must produce identical qualifiers")
	require.LessOrEqual(t, len(a.Qualifier()), 64)
}

func TestQualifier_NoArgsUsesBareMethod(t *testing.T) {
	s := Spec{Method: "first_name"}
	require.Equal(t, "first_name", s.Qualifier())
}

func TestQualifier_TruncatesTo64(t *testing.T) {
	long := Spec{Method: "a_method_name_that_is_extremely_long_and_keeps_going_on_and_on_and_on"}
	require.LessOrEqual(t, len(long.Qualifier()), 64)
}
