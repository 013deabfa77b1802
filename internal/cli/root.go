package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/cli/helpers"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version string) *cobra.Command {
	var quiet bool

	rootCmd := &cobra.Command{
		Use:   "stackit",
		Short: "Stackit is a command line tool that makes working with stacked changes fast & intuitive",
		Long: `Stackit is a command line tool that makes working with stacked changes fast & intuitive.

Branches are tracked with a parent, kept on top of it with restack, and merged
bottom to top with merge. Every command that rewrites branches records an
operation that undo can revert.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if quiet {
				helpers.Splog(cmd.Context()).SetQuiet(true)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress console output")

	rootCmd.AddCommand(
		newLogCmd(),
		newTrackCmd(),
		newUntrackCmd(),
		newRestackCmd(),
		newContinueCmd(),
		newAbortCmd(),
		newCascadeCmd(),
		newSubmitCmd(),
		newMergeCmd(),
		newMoveCmd(),
		newSplitCmd(),
		newUndoCmd(),
		newRedoCmd(),
		newOpsCmd(),
		newTrunkCmd(),
	)
	return rootCmd
}
