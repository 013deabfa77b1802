package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/config"
)

// newTrunkCmd creates the trunk command
func newTrunkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trunk [name]",
		Short: "Show or set the trunk branch",
		Long: `Show the trunk branch stacks are based on. With a name, set it; the setting is
stored in the repository's stackit config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := helpers.RepoRoot(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				trunk, err := config.GetTrunk(repoRoot)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), trunk)
				return err
			}
			if err := config.SetTrunk(repoRoot, args[0]); err != nil {
				return fmt.Errorf("failed to set trunk: %w", err)
			}
			helpers.Splog(cmd.Context()).Info("Trunk set to %s.", args[0])
			return nil
		},
	}
}
