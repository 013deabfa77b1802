package git

import (
	"context"
	"fmt"
	"strings"
)

// PullResult represents the result of a pull operation
type PullResult int

const (
	// PullDone indicates the pull was successful
	PullDone PullResult = iota
	// PullUnneeded indicates no pull was needed
	PullUnneeded
	// PullConflict indicates the local branch diverged from the remote
	PullConflict
)

// Fetch fetches branches from a remote
func (r *Repository) Fetch(ctx context.Context, remote string, branches ...string) error {
	args := append([]string{"fetch", "--quiet", remote}, branches...)
	if _, err := r.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to fetch from %s: %w", remote, err)
	}
	return nil
}

// PullTrunk fetches trunk and fast-forwards the local branch to the remote copy
func (r *Repository) PullTrunk(ctx context.Context, remote, trunk string) (PullResult, error) {
	if err := r.Fetch(ctx, remote, trunk); err != nil {
		return PullConflict, err
	}

	remoteSHA, ok, err := r.ResolveRef(ctx, "refs/remotes/"+remote+"/"+trunk)
	if err != nil {
		return PullConflict, err
	}
	if !ok {
		return PullUnneeded, nil
	}
	localSHA, err := r.HeadOf(ctx, trunk)
	if err != nil {
		return PullConflict, err
	}
	if localSHA == remoteSHA {
		return PullUnneeded, nil
	}
	if !r.IsAncestor(ctx, localSHA, remoteSHA) {
		return PullConflict, nil
	}

	current, _ := r.CurrentBranch(ctx)
	if current == trunk {
		if _, err := r.runner.Run(ctx, "merge", "--ff-only", "--quiet", remoteSHA); err != nil {
			return PullConflict, fmt.Errorf("failed to fast-forward %s: %w", trunk, err)
		}
		return PullDone, nil
	}
	if err := r.SetBranch(ctx, trunk, remoteSHA); err != nil {
		return PullConflict, err
	}
	return PullDone, nil
}

// ForcePush pushes a branch with --force-with-lease and sets its upstream
func (r *Repository) ForcePush(ctx context.Context, remote, branch string) error {
	_, err := r.runner.Run(ctx, "push", "--quiet", "-u", "--force-with-lease", remote, branch)
	if err != nil {
		if strings.Contains(err.Error(), "stale info") {
			return fmt.Errorf("force-with-lease push of %s was rejected because the remote branch changed: %w", branch, ErrStaleRemoteInfo)
		}
		return fmt.Errorf("failed to push branch %s: %w", branch, err)
	}
	return nil
}

// PushRef force-sets a remote branch to a specific commit
func (r *Repository) PushRef(ctx context.Context, remote, commit, branch string) error {
	refspec := fmt.Sprintf("%s:%s", commit, BranchRefName(branch))
	if _, err := r.runner.Run(ctx, "push", "--quiet", "--force", remote, refspec); err != nil {
		return fmt.Errorf("failed to restore %s/%s to %s: %w", remote, branch, commit, err)
	}
	return nil
}

// RemoteHeadOf asks the remote where a branch points. The bool is false when it does not exist there.
func (r *Repository) RemoteHeadOf(ctx context.Context, remote, branch string) (string, bool, error) {
	output, err := r.runner.Run(ctx, "ls-remote", remote, BranchRefName(branch))
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s/%s: %w", remote, branch, err)
	}
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", false, nil
	}
	return fields[0], true, nil
}

// DeleteRemoteBranch deletes a branch on the remote
func (r *Repository) DeleteRemoteBranch(ctx context.Context, remote, branch string) error {
	if _, err := r.runner.Run(ctx, "push", "--quiet", remote, "--delete", branch); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", remote, branch, err)
	}
	return nil
}

// RemoteURL returns the configured URL of a remote
func (r *Repository) RemoteURL(ctx context.Context, remote string) (string, error) {
	url, err := r.runner.Run(ctx, "config", "--get", "remote."+remote+".url")
	if err != nil {
		return "", fmt.Errorf("remote %s is not configured: %w", remote, err)
	}
	return url, nil
}
