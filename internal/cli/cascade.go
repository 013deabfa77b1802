package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newCascadeCmd creates the cascade command
func newCascadeCmd() *cobra.Command {
	var submit bool

	cmd := &cobra.Command{
		Use:   "cascade",
		Short: "Restack everything above the current branch after it changed",
		Long: `Restack the descendants of the current branch onto its new head, parent first.
With --submit the restacked branches are force-pushed and their pull requests
updated once the restack completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.CascadeAction(ctx, actions.CascadeOptions{Submit: submit})
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&submit, "submit", false, "Push the restacked branches and update their pull requests")
	return cmd
}
