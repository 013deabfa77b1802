package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newTrackCmd creates the track command
func newTrackCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "track [branch]",
		Short: "Start tracking a branch with stackit by selecting its parent",
		Long: `Start tracking the current (or provided) branch with stackit by recording its parent.
The merge-base with the parent is stamped as the parent revision, so a branch
that is behind its parent shows as needing a restack.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				opts := actions.TrackOptions{Parent: parent}
				if len(args) > 0 {
					opts.Branch = args[0]
				}
				_, err := actions.TrackAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "The tracked branch's parent. Defaults to trunk.")
	_ = cmd.RegisterFlagCompletionFunc("parent", helpers.CompleteBranches)
	return cmd
}
