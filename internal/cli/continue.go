package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newContinueCmd creates the continue command
func newContinueCmd() *cobra.Command {
	var addAll bool

	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Continues the most recent Stackit command halted by a rebase conflict",
		Long: `Continues the most recent Stackit command halted by a rebase conflict.
This command will continue the rebase and resume restacking remaining branches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.ContinueAction(ctx, actions.ContinueOptions{AddAll: addAll})
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&addAll, "all", "a", false, "Stage all changes before continuing")
	return cmd
}
