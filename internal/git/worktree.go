package git

import (
	"context"
	"fmt"
)

// Checkout checks out a local branch
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	if _, err := r.runner.Run(ctx, "checkout", "--quiet", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// CheckoutDetached detaches HEAD at a commit
func (r *Repository) CheckoutDetached(ctx context.Context, rev string) error {
	if _, err := r.runner.Run(ctx, "checkout", "--quiet", "--detach", rev); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", rev, err)
	}
	return nil
}

// ResetHard moves the current branch, index and working tree to commit
func (r *Repository) ResetHard(ctx context.Context, commit string) error {
	if _, err := r.runner.Run(ctx, "reset", "--hard", "--quiet", commit); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", commit, err)
	}
	return nil
}

// IsDirty reports uncommitted changes to tracked files
func (r *Repository) IsDirty(ctx context.Context) (bool, error) {
	output, err := r.runner.Run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, fmt.Errorf("failed to read status: %w", err)
	}
	return output != "", nil
}

// Stash saves uncommitted changes with a message
func (r *Repository) Stash(ctx context.Context, message string) error {
	if _, err := r.runner.Run(ctx, "stash", "push", "--message", message); err != nil {
		return fmt.Errorf("failed to stash changes: %w", err)
	}
	return nil
}

// SetBranch creates or moves a local branch to commit without touching the working tree
func (r *Repository) SetBranch(ctx context.Context, branch, commit string) error {
	return r.UpdateRef(ctx, BranchRefName(branch), commit)
}

// DeleteBranch deletes a local branch
func (r *Repository) DeleteBranch(ctx context.Context, branch string) error {
	if _, err := r.runner.Run(ctx, "branch", "-D", branch); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", branch, err)
	}
	return nil
}
