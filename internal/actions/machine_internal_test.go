package actions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMustTransition(t *testing.T) {
	m := NewMachine()
	require.NotPanics(t, func() { mustTransition(m.Run("split")) })
	require.NotPanics(t, func() { mustTransition(m.Finish()) })
	require.PanicsWithError(t, "cannot pause: operation is done", func() {
		mustTransition(m.Pause("late conflict"))
	})
}
