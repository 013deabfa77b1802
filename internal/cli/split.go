package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/engine"
	"stackit.dev/stackcore/internal/runtime"
)

// newSplitCmd creates the split command
func newSplitCmd() *cobra.Command {
	var (
		branch string
		at     []string
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split the current branch into multiple branches by commit",
		Long: `Split the current branch into a chain of branches by commit.
Each --at n:name ends a branch after the first n commits of the branch, counted
from the bottom; the last point must include every commit. A point without a
name is prompted for. Children of the split branch are moved onto the last new
branch. The whole split is recorded as one operation that undo reverts.`,
		Example: `  stackit split --at 1:api --at 3:ui`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			points := make([]engine.SplitPoint, 0, len(at))
			for _, raw := range at {
				p, err := actions.ParseSplitPoint(raw)
				if err != nil {
					return err
				}
				points = append(points, p)
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.SplitAction(ctx, actions.SplitOptions{Branch: branch, Points: points})
				return err
			})
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch to split. Defaults to the current branch.")
	cmd.Flags().StringArrayVar(&at, "at", nil, "Split point as <commits>:<branch>; repeat for each new branch")
	_ = cmd.MarkFlagRequired("at")
	_ = cmd.RegisterFlagCompletionFunc("branch", helpers.CompleteBranches)
	return cmd
}
