package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActions_DefaultRunsEverything(t *testing.T) {
	actions := Actions(0, 0, 0, nil, false)
	for _, s := range Steps {
		require.False(t, actions.Skipped(s), "%s should run by default", s)
	}
}

func TestActions_StartAtSkipsEarlierSteps(t *testing.T) {
	actions := Actions(AnonymizeDB, 0, 0, nil, false)
	require.True(t, actions.Skipped(CreateDB))
	require.True(t, actions.Skipped(RestoreDB))
	require.False(t, actions.Skipped(AnonymizeDB))
	require.False(t, actions.Skipped(DumpDB))
}

func TestActions_StopAtSkipsLaterSteps(t *testing.T) {
	actions := Actions(0, RestoreDB, 0, nil, false)
	require.False(t, actions.Skipped(CreateDB))
	require.False(t, actions.Skipped(RestoreDB))
	require.True(t, actions.Skipped(AnonymizeDB))
	require.True(t, actions.Skipped(DropDB))
}

func TestActions_OnlyStepPinsStartAndStop(t *testing.T) {
	actions := Actions(0, 0, AnonymizeDB, nil, false)
	require.True(t, actions.Skipped(CreateDB))
	require.False(t, actions.Skipped(AnonymizeDB))
	require.True(t, actions.Skipped(DumpDB))
}

func TestActions_ExplicitSkipStepsAreSkippedRegardlessOfRange(t *testing.T) {
	actions := Actions(0, 0, 0, []Step{DumpDB}, false)
	require.True(t, actions.Skipped(DumpDB))
	require.False(t, actions.Skipped(CreateDB))
}

func TestActions_DryRunSkipsEveryStep(t *testing.T) {
	actions := Actions(0, 0, 0, nil, true)
	require.True(t, actions.AllSkipped())
}

// Property: skipped(s) iff s < startAt, s > stopAt, s in skipSteps, or dryRun.
func TestActions_SkippedIffOneOfFourConditions(t *testing.T) {
	startAt, stopAt := RestoreDB, DumpDB
	skip := []Step{AnonymizeDB}
	actions := Actions(startAt, stopAt, 0, skip, false)

	skipSet := map[Step]bool{AnonymizeDB: true}
	for _, s := range Steps {
		want := s < startAt || s > stopAt || skipSet[s]
		require.Equal(t, want, actions.Skipped(s), "step %s", s)
	}
}

func TestParseStep_CaseInsensitive(t *testing.T) {
	s, err := ParseStep("anonymize_db")
	require.NoError(t, err)
	require.Equal(t, AnonymizeDB, s)
}

func TestParseStep_UnknownRejected(t *testing.T) {
	_, err := ParseStep("not_a_step")
	require.Error(t, err)
}
