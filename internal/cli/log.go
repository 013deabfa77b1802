package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "log",
		Aliases: []string{"ls"},
		Short:   "Log all tracked stacks",
		Long: `Log all tracked stacks. The current stack comes first, then the other stacks,
then trunk. Each branch shows whether it needs a restack and how far it is
ahead of and behind its parent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.LogAction(ctx, cmd.OutOrStdout())
			})
		},
	}
}
