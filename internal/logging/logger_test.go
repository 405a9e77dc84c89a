package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesInfoAndWarnWithoutPanicking(t *testing.T) {
	l := New(false, "")
	require.NotNil(t, l)
	l.Info("starting run", "step", "CREATE_DB")
	l.Warn("dependency missing", "tool", "mysqldump")
	_ = l.Sync()
}

func TestNew_WithLogFileCreatesRotatingSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonymizer.log")
	l := New(true, path)
	require.NotNil(t, l)
	l.Error("anonymize failed", "table", "customer")
	_ = l.Sync()
}
