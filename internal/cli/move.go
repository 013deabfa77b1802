package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newMoveCmd creates the move command
func newMoveCmd() *cobra.Command {
	var (
		branch string
		onto   string
	)

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Rebase the current branch onto the target branch and restack all of its descendants",
		Long: `Rebase the current branch onto the target branch and restack all of its descendants.
The target must be trunk or a tracked branch that is not a descendant of the
branch being moved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.MoveAction(ctx, actions.MoveOptions{Branch: branch, Onto: onto})
				return err
			})
		},
	}

	cmd.Flags().StringVar(&branch, "source", "", "Branch to move. Defaults to the current branch.")
	cmd.Flags().StringVarP(&onto, "onto", "o", "", "Branch to move the current branch onto.")
	_ = cmd.MarkFlagRequired("onto")
	_ = cmd.RegisterFlagCompletionFunc("onto", helpers.CompleteBranches)
	_ = cmd.RegisterFlagCompletionFunc("source", helpers.CompleteBranches)
	return cmd
}
