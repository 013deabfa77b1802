package output_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/output"
)

func TestSplog(t *testing.T) {
	t.Run("writes bare messages and hides debug by default", func(t *testing.T) {
		t.Setenv("DEBUG", "")
		var buf bytes.Buffer
		splog := output.NewSplogWithWriter(&buf)

		splog.Info("Restacked %s onto %s.", "b", "a")
		splog.Debug("hidden")
		splog.Warn("careful")
		splog.Tip("try %s", "continue")

		require.Equal(t, "Restacked b onto a.\n⚠️  careful\n💡 try continue\n", buf.String())
	})

	t.Run("debug is shown when DEBUG is set", func(t *testing.T) {
		t.Setenv("DEBUG", "1")
		var buf bytes.Buffer
		output.NewSplogWithWriter(&buf).Debug("visible")
		require.Equal(t, "visible\n", buf.String())
	})

	t.Run("quiet suppresses console output", func(t *testing.T) {
		var buf bytes.Buffer
		splog := output.NewSplogWithWriter(&buf)
		splog.SetQuiet(true)
		require.True(t, splog.IsQuiet())
		splog.Info("nothing")
		splog.Page("nothing")
		splog.Newline()
		require.Empty(t, buf.String())
	})

	t.Run("log file records every level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "stackit.log")
		splog, err := output.NewSplogWithLogFile(path)
		require.NoError(t, err)
		splog.SetQuiet(true)
		splog.Debug("debug line")
		splog.Error("error line")
		require.NoError(t, splog.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(data), "debug line")
		require.Contains(t, string(data), "error line")
	})
}
