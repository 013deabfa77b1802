package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/engine"
	"stackit.dev/stackcore/internal/runtime"
)

// scopeFlags are the mutually exclusive --only/--upstack/--downstack/--stack/--all flags
type scopeFlags struct {
	only      bool
	upstack   bool
	downstack bool
	stack     bool
	all       bool
}

func (f *scopeFlags) register(cmd *cobra.Command, verb string) {
	cmd.Flags().BoolVar(&f.only, "only", false, fmt.Sprintf("Only %s this branch.", verb))
	cmd.Flags().BoolVar(&f.upstack, "upstack", false, fmt.Sprintf("Only %s this branch and its descendants.", verb))
	cmd.Flags().BoolVar(&f.downstack, "downstack", false, fmt.Sprintf("Only %s this branch and its ancestors.", verb))
	cmd.Flags().BoolVar(&f.stack, "stack", false, fmt.Sprintf("%s the whole stack of this branch (default).", capitalize(verb)))
	cmd.Flags().BoolVar(&f.all, "all", false, fmt.Sprintf("%s every tracked branch.", capitalize(verb)))
	cmd.MarkFlagsMutuallyExclusive("only", "upstack", "downstack", "stack", "all")
}

func (f *scopeFlags) scope() engine.Scope {
	switch {
	case f.only:
		return engine.ScopeOnly
	case f.upstack:
		return engine.ScopeUpstack
	case f.downstack:
		return engine.ScopeDownstack
	case f.all:
		return engine.ScopeAll
	default:
		return engine.ScopeStack
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// newRestackCmd creates the restack command
func newRestackCmd() *cobra.Command {
	var (
		branch string
		scope  scopeFlags
	)

	cmd := &cobra.Command{
		Use:   "restack",
		Short: "Ensure each branch in the current stack has its parent in its Git commit history, rebasing if necessary",
		Long: `Ensure each branch in the current stack has its parent in its Git commit history, rebasing if necessary.
Branches are visited parent first. If a conflict is encountered the restack
pauses: resolve it and run 'stackit continue', or run 'stackit abort' to roll
every branch back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.RestackAction(ctx, actions.RestackOptions{
					Branch: branch,
					Scope:  scope.scope(),
				})
				return err
			})
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Which branch to run this command from. Defaults to the current branch.")
	_ = cmd.RegisterFlagCompletionFunc("branch", helpers.CompleteBranches)
	scope.register(cmd, "restack")
	return cmd
}
