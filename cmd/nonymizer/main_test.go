package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nonymizer/internal/pipeline"
)

func TestEnvOr_PrefixedTakesPriorityOverLegacy(t *testing.T) {
	t.Setenv("PYNONYMIZER_DB_HOST", "prefixed.example")
	t.Setenv("DB_HOST", "legacy.example")
	require.Equal(t, "prefixed.example", envOr("DB_HOST", "default"))
}

func TestEnvOr_FallsBackToLegacyWhenPrefixedUnset(t *testing.T) {
	t.Setenv("DB_HOST", "legacy.example")
	require.Equal(t, "legacy.example", envOr("DB_HOST", "default"))
}

func TestEnvOr_FallsBackToDefaultWhenNeitherSet(t *testing.T) {
	require.Equal(t, "default", envOr("DB_HOST_UNSET_VAR", "default"))
}

func TestParseStep_EmptyNameIsZeroValue(t *testing.T) {
	s, err := parseStep("")
	require.NoError(t, err)
	require.Equal(t, pipeline.Step(0), s)
}

func TestParseStep_UnknownNameIsError(t *testing.T) {
	_, err := parseStep("not_a_step")
	require.Error(t, err)
}

func TestBuildRootCmd_DefaultsMSSQLAnsiWarningsOffToTrue(t *testing.T) {
	flags := &runFlags{}
	cmd := buildRootCmd(flags)
	f := cmd.Flags().Lookup("mssql-ansi-warnings-off")
	require.NotNil(t, f)
	require.Equal(t, "true", f.DefValue)
}
