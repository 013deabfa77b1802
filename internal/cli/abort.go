package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
)

// newAbortCmd creates the abort command
func newAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort",
		Short: "Abort the current Stackit command halted by a rebase conflict",
		Long: `Abort the current Stackit command halted by a rebase conflict.
The rebase is aborted and every branch the command touched is restored to
where it was before the command started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, actions.AbortAction)
		},
	}
}
