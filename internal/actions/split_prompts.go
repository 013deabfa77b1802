package actions

import (
	"fmt"
	"slices"

	"stackit.dev/stackcore/internal/engine"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/internal/tui"
)

// promptSplitNames asks for the name of every point given without one
func promptSplitNames(ctx *runtime.Context, branch string, points []engine.SplitPoint) ([]engine.SplitPoint, error) {
	out := slices.Clone(points)
	for i := range out {
		if out[i].Name != "" {
			continue
		}
		var used []string
		for _, p := range out {
			if p.Name != "" {
				used = append(used, p.Name)
			}
		}
		name, err := promptBranchName(ctx, used, branch, i+1)
		if err != nil {
			return nil, err
		}
		out[i].Name = name
	}
	return out, nil
}

func promptBranchName(ctx *runtime.Context, used []string, original string, branchNum int) (string, error) {
	repo := ctx.Engine.Repo()
	defaultName := original
	for slices.Contains(used, defaultName) {
		defaultName += "_split"
	}

	name, err := tui.PromptInput(fmt.Sprintf("Choose a name for branch %d", branchNum), defaultName, func(name string) error {
		if name == "" {
			return fmt.Errorf("a branch name is required")
		}
		if slices.Contains(used, name) {
			return fmt.Errorf("branch name %s is already used by another branch in this split", name)
		}
		// the original name may be reused; it is replaced by the split
		if name != original && repo.BranchExists(ctx, name) {
			return fmt.Errorf("branch name %s is already in use", name)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("no name for split branch %d: %w", branchNum, err)
	}
	return name, nil
}
