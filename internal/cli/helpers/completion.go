package helpers

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/runtime"
)

// CompleteBranches is a helper for cobra.ValidArgsFunction and RegisterFlagCompletionFunc
// that returns the tracked branches and trunk.
func CompleteBranches(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var branches []string
	err := Run(cmd, func(ctx *runtime.Context) error {
		graph, err := ctx.Engine.Graph(ctx)
		if err != nil {
			return err
		}
		branches = append(graph.Branches(), ctx.Engine.Trunk())
		return nil
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return branches, cobra.ShellCompDirectiveNoFileComp
}
