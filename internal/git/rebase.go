package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RebaseResult represents the result of a rebase operation
type RebaseResult int

const (
	// RebaseDone indicates the rebase was successful
	RebaseDone RebaseResult = iota
	// RebaseConflict indicates a conflict occurred during rebase
	RebaseConflict
)

func (r RebaseResult) String() string {
	if r == RebaseDone {
		return "done"
	}
	return "conflict"
}

// Rebase replays the commits of branch that are not reachable from upstream onto onto.
// The branch is checked out by git while the rebase runs. On conflict the
// repository is left mid-rebase and RebaseConflict is returned with a nil error.
func (r *Repository) Rebase(ctx context.Context, branch, onto, upstream string) (RebaseResult, error) {
	_, err := r.runner.Run(ctx, "rebase", "--onto", onto, upstream, branch)
	if err != nil {
		if r.IsRebaseInProgress(ctx) {
			return RebaseConflict, nil
		}
		return RebaseConflict, fmt.Errorf("rebase of %s failed: %w", branch, err)
	}
	return RebaseDone, nil
}

// IsRebaseInProgress checks if a rebase is currently in progress
func (r *Repository) IsRebaseInProgress(_ context.Context) bool {
	// rebase-merge and rebase-apply are more reliable than REBASE_HEAD, which can persist
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(r.gitDir, dir)); err == nil {
			return true
		}
	}
	return false
}

// RebasingBranch returns the branch being rebased, or "" when unknown
func (r *Repository) RebasingBranch(_ context.Context) string {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		data, err := os.ReadFile(filepath.Join(r.gitDir, dir, "head-name"))
		if err == nil {
			return strings.TrimPrefix(strings.TrimSpace(string(data)), "refs/heads/")
		}
	}
	return ""
}

// RebaseContinue continues an in-progress rebase
func (r *Repository) RebaseContinue(ctx context.Context) (RebaseResult, error) {
	if !r.IsRebaseInProgress(ctx) {
		return RebaseDone, nil
	}
	_, err := r.runner.Run(ctx, "-c", "core.editor=true", "rebase", "--continue")
	if err != nil {
		// Check if rebase is still in progress (another conflict)
		if r.IsRebaseInProgress(ctx) {
			return RebaseConflict, nil
		}
		return RebaseConflict, fmt.Errorf("rebase continue failed: %w", err)
	}
	return RebaseDone, nil
}

// RebaseAbort aborts an in-progress rebase
func (r *Repository) RebaseAbort(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, "rebase", "--abort"); err != nil {
		return fmt.Errorf("rebase abort failed: %w", err)
	}
	return nil
}

// UnmergedFiles lists paths with unresolved conflicts
func (r *Repository) UnmergedFiles(ctx context.Context) ([]string, error) {
	return r.runner.RunLines(ctx, "diff", "--name-only", "--diff-filter=U")
}

// AddAll stages every change in the working tree
func (r *Repository) AddAll(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, "add", "--all"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}
