package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScrubPassword_LeavesFlagEmbeddedValueUntouched(t *testing.T) {
	argv := []string{"mysql", "-u", "root", "-phunter2"}
	out := ScrubPassword(argv, "hunter2")
	require.Equal(t, []string{"mysql", "-u", "root", "-phunter2"}, out, "scrub only matches a standalone argv element, not a flag-embedded value")
}

func TestScrubPassword_ReplacesStandaloneArg(t *testing.T) {
	argv := []string{"psql", "--password", "hunter2"}
	out := ScrubPassword(argv, "hunter2")
	require.Equal(t, []string{"psql", "--password", "********"}, out)
}

func TestScrubPassword_EmptyPasswordIsNoop(t *testing.T) {
	argv := []string{"mysql", "-u", "root"}
	out := ScrubPassword(argv, "")
	require.Equal(t, argv, out)
}
