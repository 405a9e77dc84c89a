package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTableReporter_FinishesAfterAllTablesReport(t *testing.T) {
	bar := NewTableReporter(2)
	bar.TableStarted("customer")
	bar.TableFinished("customer", nil)
	require.EqualValues(t, 1, bar.done)
	bar.TableFinished("orders", nil)
	require.EqualValues(t, 2, bar.done)
}

func TestNewStreamReporter_KnownSizeStartsAtZero(t *testing.T) {
	bar, update := NewStreamReporter("restore", 1024, true)
	require.EqualValues(t, 0, bar.Current())
	require.NotPanics(t, func() { update(512) })
}

func TestNewStreamReporter_UnknownSizeFallsBackToSpinner(t *testing.T) {
	_, update := NewStreamReporter("restore", 0, false)
	require.NotPanics(t, func() { update(256) })
}
