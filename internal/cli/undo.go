package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/internal/tui"
)

// newUndoCmd creates the undo command
func newUndoCmd() *cobra.Command {
	var (
		remote bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "undo [op-id]",
		Short: "Restore the branches of a previous operation",
		Long: `Restore every branch a Stackit operation touched to where it was before the
operation ran. Without an operation id the newest operation that has not been
undone is reverted. Remote branches the operation force-pushed are restored
only with --remote. Run 'stackit ops' to list operations.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := actions.UndoOptions{Remote: remote, Confirm: !yes && tui.IsTTY()}
			if len(args) > 0 {
				opts.OpID = args[0]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.UndoAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also restore force-pushed branches on the remote")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

// newRedoCmd creates the redo command
func newRedoCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Re-apply the operation reverted by the last undo",
		Long: `Re-apply the operation reverted by the last undo, restoring the exact commits
it produced. Any new operation after the undo discards the redo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.RedoAction(ctx, remote)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also force-push the restored branches to the remote")
	return cmd
}

// newOpsCmd creates the ops command
func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List recorded operations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.OpsAction(ctx)
				return err
			})
		},
	}
}
