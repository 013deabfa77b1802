package engine

import (
	"context"
	"errors"
	"fmt"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/git"
)

// RestackBranch replays the commits unique to branch onto its parent's current
// head and stamps that head as the new parent revision. A branch already
// stamped with the parent's head is left alone. On conflict the repository is
// left mid-rebase and RestackConflict is returned; ContinueRestack finishes it.
func (e *Engine) RestackBranch(ctx context.Context, branch string) (RestackOutcome, error) {
	outcome := RestackOutcome{Branch: branch}
	if branch == e.trunk {
		return outcome, fmt.Errorf("cannot restack %s: %w", branch, stackiterrors.ErrTrunkOperation)
	}

	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return outcome, err
	}
	parent, err := e.effectiveParent(ctx, node)
	switch {
	case errors.Is(err, stackiterrors.ErrMissingParent):
		outcome.Reparented = true
		outcome.OldParent = node.Parent
		e.splog.Info("Parent %s of %s no longer exists; restacking onto %s.", node.Parent, branch, e.trunk)
	case err != nil:
		return outcome, err
	}

	parentHead, err := e.repo.HeadOf(ctx, parent)
	if err != nil {
		return outcome, err
	}
	outcome.Parent = parent
	outcome.ParentHead = parentHead

	if !outcome.Reparented && node.ParentRevision == parentHead {
		outcome.Result = RestackUnneeded
		return outcome, nil
	}

	// already on top of the parent; only the stamp is stale
	if !outcome.Reparented && e.repo.IsAncestor(ctx, parentHead, branch) {
		outcome.Result = RestackDone
		return outcome, e.Stamp(ctx, branch, parent, parentHead)
	}

	upstream, err := e.rebaseUpstream(ctx, node, parent)
	if err != nil {
		return outcome, err
	}
	result, err := e.repo.Rebase(ctx, branch, parentHead, upstream)
	if err != nil {
		return outcome, err
	}
	if result == git.RebaseConflict {
		outcome.Result = RestackConflict
		return outcome, nil
	}

	outcome.Result = RestackDone
	return outcome, e.Stamp(ctx, branch, parent, parentHead)
}

// RebaseOnto rebases branch onto newBase, replaying the commits above its
// stamped parent revision, and stamps newParent/newBase. It is used when the
// parent itself has gone away (merged) rather than moved.
func (e *Engine) RebaseOnto(ctx context.Context, branch, newParent, newBase string) (RestackOutcome, error) {
	outcome := RestackOutcome{Branch: branch, Parent: newParent, ParentHead: newBase}
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return outcome, err
	}
	if node.Parent != newParent {
		outcome.Reparented = true
		outcome.OldParent = node.Parent
	}

	upstream, err := e.rebaseUpstream(ctx, node, newParent)
	if err != nil {
		return outcome, err
	}
	result, err := e.repo.Rebase(ctx, branch, newBase, upstream)
	if err != nil {
		return outcome, err
	}
	if result == git.RebaseConflict {
		outcome.Result = RestackConflict
		return outcome, nil
	}
	outcome.Result = RestackDone
	return outcome, e.Stamp(ctx, branch, newParent, newBase)
}

// ContinueRestack finishes a paused rebase and stamps the branch as RestackBranch would have.
// A rebase abandoned with git is started again, so branch is only stamped
// once parentHead is in its history.
func (e *Engine) ContinueRestack(ctx context.Context, branch, parent, parentHead string) (RestackResult, error) {
	result, err := e.repo.RebaseContinue(ctx)
	if err != nil {
		return RestackConflict, err
	}
	if result == git.RebaseConflict {
		return RestackConflict, nil
	}

	if !e.repo.IsAncestor(ctx, parentHead, branch) {
		e.splog.Debug("%s is not on top of %s after the rebase; rebasing again", branch, parentHead)
		node, err := e.store.Load(ctx, branch)
		if err != nil {
			return RestackConflict, err
		}
		upstream, err := e.rebaseUpstream(ctx, node, parent)
		if err != nil {
			return RestackConflict, err
		}
		result, err := e.repo.Rebase(ctx, branch, parentHead, upstream)
		if err != nil {
			return RestackConflict, err
		}
		if result == git.RebaseConflict {
			return RestackConflict, nil
		}
	}
	return RestackDone, e.Stamp(ctx, branch, parent, parentHead)
}

// Stamp records parent and parentHead as branch's parent and parent revision
func (e *Engine) Stamp(ctx context.Context, branch, parent, parentHead string) error {
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return err
	}
	node.Parent = parent
	node.ParentRevision = parentHead
	return e.store.Save(ctx, node)
}

// rebaseUpstream is the commit below branch's own commits: the stamped parent
// revision when it is still in branch's history, otherwise the merge-base with parent
func (e *Engine) rebaseUpstream(ctx context.Context, node *Node, parent string) (string, error) {
	if node.ParentRevision != "" && e.repo.IsAncestor(ctx, node.ParentRevision, node.Name) {
		return node.ParentRevision, nil
	}
	base, err := e.repo.MergeBase(ctx, parent, node.Name)
	if err != nil {
		return "", fmt.Errorf("cannot find where %s diverges from %s: %w", node.Name, parent, err)
	}
	return base, nil
}
