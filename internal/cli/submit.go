package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
)

// newSubmitCmd creates the submit command
func newSubmitCmd() *cobra.Command {
	var (
		branch string
		scope  scopeFlags
	)

	cmd := &cobra.Command{
		Use:     "submit",
		Aliases: []string{"s"},
		Short:   "Push branches to the remote and open or update their pull requests",
		Long: `Push the branches of the current stack to the remote and open or update a pull
request for each, based on its parent. Pushes use --force-with-lease and are
recorded so undo --remote can put the remote branches back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.SubmitAction(ctx, actions.SubmitOptions{
					Branch: branch,
					Scope:  scope.scope(),
				})
				return err
			})
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Which branch to run this command from. Defaults to the current branch.")
	_ = cmd.RegisterFlagCompletionFunc("branch", helpers.CompleteBranches)
	scope.register(cmd, "submit")
	return cmd
}
