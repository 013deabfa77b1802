package actions

import (
	"context"
	"fmt"

	"stackit.dev/stackcore/internal/git"
	"stackit.dev/stackcore/internal/output"
)

// PrintConflictStatus displays conflict information and instructions to the user
func PrintConflictStatus(ctx context.Context, repo *git.Repository, branch string, pending []string, splog *output.Splog) {
	splog.Info("%s", output.ColorRed(fmt.Sprintf("Hit conflict restacking %s", branch)))
	splog.Newline()

	if files, err := repo.UnmergedFiles(ctx); err == nil && len(files) > 0 {
		splog.Info("%s", output.ColorYellow("Unmerged files:"))
		for _, file := range files {
			splog.Info("%s", output.ColorRed(file))
		}
		splog.Newline()
	}

	if len(pending) > 0 {
		splog.Info("%s", output.ColorYellow("Still to restack:"))
		for _, b := range pending {
			splog.Info("%s", output.ColorBranchName(b, false))
		}
		splog.Newline()
	}

	splog.Info("%s", output.ColorYellow("To fix and continue your previous stackit command:"))
	splog.Info("(1) resolve the listed merge conflicts")
	splog.Info("(2) mark them as resolved with %s", output.ColorCyan("git add ."))
	splog.Info("(3) run %s to continue executing your previous stackit command", output.ColorCyan("stackit continue"))
	splog.Info("To roll the whole operation back, run %s.", output.ColorCyan("stackit abort"))
}
