package git

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	stackiterrors "stackit.dev/stackcore/internal/errors"
)

// Repository is the VCS backend: go-git for reads, the git CLI for writes
type Repository struct {
	repo   *gogit.Repository
	runner *CommandRunner
	root   string
	gitDir string
}

// OpenRepository opens the git repository containing path
func OpenRepository(ctx context.Context, path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	runner := NewCommandRunner(root)
	gitDir, err := runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to locate git directory: %w", err)
	}

	return &Repository{
		repo:   repo,
		runner: runner,
		root:   root,
		gitDir: gitDir,
	}, nil
}

// Root returns the root directory of the working tree
func (r *Repository) Root() string {
	return r.root
}

// GitDir returns the absolute path of the .git directory
func (r *Repository) GitDir() string {
	return r.gitDir
}

// Runner returns the command runner bound to the repository root
func (r *Repository) Runner() *CommandRunner {
	return r.runner
}

// HeadOf returns the commit a local branch points at
func (r *Repository) HeadOf(_ context.Context, branch string) (string, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return "", stackiterrors.NewBranchNotFoundError(branch)
	}
	return ref.Hash().String(), nil
}

// BranchExists reports whether a local branch exists
func (r *Repository) BranchExists(_ context.Context, branch string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	return err == nil
}

// ListBranches returns all local branch names, sorted
func (r *Repository) ListBranches(_ context.Context) ([]string, error) {
	branches, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}

	var names []string
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the checked-out branch, or ErrNotOnBranch when HEAD is detached
func (r *Repository) CurrentBranch(_ context.Context) (string, error) {
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", stackiterrors.ErrNotOnBranch
	}
	return head.Target().Short(), nil
}
