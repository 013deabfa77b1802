package cli

import (
	"time"

	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/internal/tui"
)

// newMergeCmd creates the merge command
func newMergeCmd() *cobra.Command {
	var (
		all      bool
		method   string
		noWait   bool
		timeout  time.Duration
		noDelete bool
		yes      bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the pull requests associated with all branches from trunk to the current branch via Stackit",
		Long: `Merge the pull requests associated with all branches from trunk to the current branch via Stackit.
Pull requests are merged bottom to top. Before each merge CI must pass; after
it trunk is pulled and the next branch is rebased onto trunk and its pull
request retargeted. Branches above the current one are rebased onto trunk
afterwards but never merged. With --all the whole stack is merged.

If a step fails the cascade halts there. Pull requests already merged stay
merged; fix the problem and run merge again to continue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := actions.MergeOptions{
				All:      all,
				NoWait:   noWait,
				Timeout:  timeout,
				NoDelete: noDelete,
				DryRun:   dryRun,
				Confirm:  !yes && tui.IsTTY(),
			}
			if method != "" {
				m, err := github.ParseMergeMethod(method)
				if err != nil {
					return err
				}
				opts.Method = m
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.MergeAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Merge the whole stack instead of stopping at the current branch")
	cmd.Flags().StringVar(&method, "method", "", "Merge method: squash, merge or rebase. Defaults to the configured method.")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Check CI once instead of waiting for it")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for CI on each pull request. Defaults to the configured timeout.")
	cmd.Flags().BoolVar(&noDelete, "no-delete", false, "Keep merged branches")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show merge plan without executing")
	return cmd
}
