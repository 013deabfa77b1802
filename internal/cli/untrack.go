package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newUntrackCmd creates the untrack command
func newUntrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack [branch]",
		Short: "Stop tracking a branch with stackit",
		Long: `Stop tracking the current (or provided) branch with stackit. The git branch is
kept. Its children are handed to its parent.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				branch := ""
				if len(args) > 0 {
					branch = args[0]
				}
				_, err := actions.UntrackAction(ctx, branch)
				return err
			})
		},
	}
}
