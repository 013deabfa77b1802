package engine

import (
	"context"
	"fmt"

	stackiterrors "stackit.dev/stackcore/internal/errors"
)

// SplitPoint ends a new branch after Count commits of the branch being split,
// counted from the bottom
type SplitPoint struct {
	Count int
	Name  string
}

// SplitCommits returns the commits branch owns above its parent, oldest
// first, and the commit below them
func (e *Engine) SplitCommits(ctx context.Context, branch string) (string, []string, error) {
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return "", nil, err
	}
	parent, _ := e.effectiveParent(ctx, node)
	base, err := e.rebaseUpstream(ctx, node, parent)
	if err != nil {
		return "", nil, err
	}
	commits, err := e.repo.CommitsBetween(ctx, base, branch)
	if err != nil {
		return "", nil, err
	}
	return base, commits, nil
}

// ValidateSplitPoints checks points against a branch of n commits: counts
// strictly increasing within 1..n ending at n, names unique and free except
// for the original branch's own name
func (e *Engine) ValidateSplitPoints(ctx context.Context, branch string, n int, points []SplitPoint) error {
	if len(points) < 2 {
		return fmt.Errorf("a split needs at least two branches, got %d", len(points))
	}
	seen := map[string]bool{}
	prev := 0
	for _, p := range points {
		if p.Name == "" {
			return fmt.Errorf("split point at commit %d has no branch name", p.Count)
		}
		if p.Count <= prev || p.Count > n {
			return fmt.Errorf("split point %d:%s must be above %d and at most %d", p.Count, p.Name, prev, n)
		}
		if seen[p.Name] {
			return fmt.Errorf("branch name %s is used twice", p.Name)
		}
		if p.Name == e.trunk {
			return fmt.Errorf("cannot split into %s: %w", p.Name, stackiterrors.ErrTrunkOperation)
		}
		if p.Name != branch && e.repo.BranchExists(ctx, p.Name) {
			return fmt.Errorf("branch %s already exists", p.Name)
		}
		seen[p.Name] = true
		prev = p.Count
	}
	if prev != n {
		return fmt.Errorf("the last split point must include all %d commits of %s, got %d", n, branch, prev)
	}
	return nil
}

// ApplySplit turns branch into a chain of branches, one per point, each
// owning the commits since the previous point. Children of branch move onto
// the last branch and the pull request follows the branch that keeps the
// original name, or the last one. The original is deleted unless a point
// reuses its name. The last branch is checked out.
func (e *Engine) ApplySplit(ctx context.Context, branch string, points []SplitPoint) error {
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return err
	}
	parent, _ := e.effectiveParent(ctx, node)
	base, commits, err := e.SplitCommits(ctx, branch)
	if err != nil {
		return err
	}
	if err := e.ValidateSplitPoints(ctx, branch, len(commits), points); err != nil {
		return err
	}
	graph, err := e.Graph(ctx)
	if err != nil {
		return err
	}
	children := graph.Children(branch)

	// branch may be moved or deleted below
	head := commits[len(commits)-1]
	if e.CurrentBranch(ctx) == branch {
		if err := e.repo.CheckoutDetached(ctx, head); err != nil {
			return err
		}
	}

	reused := false
	prevName, prevRev := parent, base
	for i, p := range points {
		sha := commits[p.Count-1]
		if err := e.repo.SetBranch(ctx, p.Name, sha); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.Name, err)
		}
		next := &Node{Name: p.Name, Parent: prevName, ParentRevision: prevRev}
		if p.Name == branch {
			reused = true
			next.PR = node.PR
		}
		if i == len(points)-1 && !reused {
			next.PR = node.PR
		}
		if err := e.store.Save(ctx, next); err != nil {
			return err
		}
		e.splog.Debug("Split %s: %s owns commits %d..%d", branch, p.Name, prevCount(points, i)+1, p.Count)
		prevName, prevRev = p.Name, sha
	}

	last := points[len(points)-1].Name
	for _, child := range children {
		childNode, err := e.store.Load(ctx, child)
		if err != nil {
			return err
		}
		childNode.Parent = last
		if err := e.store.Save(ctx, childNode); err != nil {
			return err
		}
	}

	if !reused {
		if err := e.repo.DeleteBranch(ctx, branch); err != nil {
			return err
		}
		if err := e.store.Delete(ctx, branch); err != nil {
			return err
		}
	}
	return e.repo.Checkout(ctx, last)
}

func prevCount(points []SplitPoint, i int) int {
	if i == 0 {
		return 0
	}
	return points[i-1].Count
}
