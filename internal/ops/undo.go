package ops

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/git"
)

// target is the state a branch and its metadata are restored to. Empty values delete the ref.
type target struct {
	branch string
	head   string
	meta   string
}

// Undo resets every branch in the receipt for opID (the newest not-undone
// receipt when opID is empty) to its prior head and metadata. Force-pushed
// branches are restored on the remote only when restoreRemote is set.
func (m *Manager) Undo(ctx context.Context, opID string, restoreRemote bool) (*Receipt, error) {
	if err := m.lockFor(ctx, KindUndo); err != nil {
		return nil, err
	}
	defer m.unlock()

	var receipt *Receipt
	var err error
	if opID == "" {
		receipt, err = m.Latest()
	} else {
		receipt, err = m.store.LoadReceipt(opID)
	}
	if err != nil {
		return nil, err
	}
	if receipt.Undone {
		return nil, fmt.Errorf("operation %s has already been undone", receipt.OpID)
	}

	if err := m.prepareWorktree(ctx, "stackit undo "+receipt.OpID); err != nil {
		return nil, err
	}

	// pin the new revisions so redo can bring back the exact commits
	var errs error
	for _, e := range receipt.Entries {
		if e.NewRevision != "" {
			errs = multierr.Append(errs, m.repo.UpdateRef(ctx, redoHeadRef(receipt.OpID, e.Branch), e.NewRevision))
		}
		if e.NewMetadata != "" {
			errs = multierr.Append(errs, m.repo.UpdateRef(ctx, redoMetaRef(receipt.OpID, e.Branch), e.NewMetadata))
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("failed to pin redo state for %s: %w", receipt.OpID, errs)
	}

	targets := make([]target, 0, len(receipt.Entries))
	for _, e := range receipt.Entries {
		targets = append(targets, target{branch: e.Branch, head: e.PriorRevision, meta: e.PriorMetadata})
	}
	errs = m.restore(ctx, targets, receipt.Trunk, receipt.HeadBranchBefore)

	for _, e := range receipt.Entries {
		if !e.ForcePushed {
			continue
		}
		if !restoreRemote {
			m.splog.Info("Left %s/%s untouched (pass --remote to restore it).", e.Remote, e.Branch)
			continue
		}
		errs = multierr.Append(errs, m.setRemote(ctx, e.Remote, e.Branch, e.RemotePriorRevision))
	}
	if errs != nil {
		return receipt, fmt.Errorf("undo of %s was incomplete: %w", receipt.OpID, errs)
	}

	if previous, ok := m.store.Redo(); ok && previous != receipt.OpID {
		if err := m.deleteRedoRefs(ctx, previous); err != nil {
			return receipt, err
		}
	}
	receipt.Undone = true
	if err := m.store.SaveReceipt(receipt); err != nil {
		return receipt, err
	}
	if err := m.store.SetRedo(receipt.OpID); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// Redo re-applies the receipt reverted by the immediately preceding undo
func (m *Manager) Redo(ctx context.Context, restoreRemote bool) (*Receipt, error) {
	opID, ok := m.store.Redo()
	if !ok {
		return nil, stackiterrors.ErrRedoUnavailable
	}
	if err := m.lockFor(ctx, KindRedo); err != nil {
		return nil, err
	}
	defer m.unlock()

	receipt, err := m.store.LoadReceipt(opID)
	if err != nil {
		return nil, err
	}
	if !receipt.Undone {
		return nil, stackiterrors.ErrRedoUnavailable
	}

	if err := m.prepareWorktree(ctx, "stackit redo "+receipt.OpID); err != nil {
		return nil, err
	}

	targets := make([]target, 0, len(receipt.Entries))
	for _, e := range receipt.Entries {
		targets = append(targets, target{branch: e.Branch, head: e.NewRevision, meta: e.NewMetadata})
	}
	errs := m.restore(ctx, targets, receipt.Trunk, receipt.HeadBranchBefore)

	for _, e := range receipt.Entries {
		if e.ForcePushed && restoreRemote {
			errs = multierr.Append(errs, m.setRemote(ctx, e.Remote, e.Branch, e.NewRevision))
		}
	}
	if errs != nil {
		return receipt, fmt.Errorf("redo of %s was incomplete: %w", receipt.OpID, errs)
	}

	receipt.Undone = false
	if err := m.store.SaveReceipt(receipt); err != nil {
		return receipt, err
	}
	return receipt, m.dropRedo(ctx)
}

func (m *Manager) lockFor(_ context.Context, kind Kind) error {
	now := m.now()
	return m.store.Lock(&Receipt{OpID: newOpID(now), Kind: kind, StartedAt: now.UTC()})
}

func (m *Manager) unlock() {
	if err := m.store.Unlock(); err != nil {
		m.splog.Warn("%v", err)
	}
}

// prepareWorktree leaves the working tree safe for moving refs underneath it
func (m *Manager) prepareWorktree(ctx context.Context, message string) error {
	if m.repo.IsRebaseInProgress(ctx) {
		m.splog.Info("Aborting the rebase in progress.")
		if err := m.repo.RebaseAbort(ctx); err != nil {
			return err
		}
	}
	dirty, err := m.repo.IsDirty(ctx)
	if err != nil {
		return err
	}
	if dirty {
		m.splog.Info("Stashing uncommitted changes (%s).", message)
		return m.repo.Stash(ctx, message)
	}
	return nil
}

// restore moves branch and metadata refs to the given targets. When the
// checked-out branch is among them HEAD is detached first and the branch is
// checked out again afterwards, or the fallback branch when it no longer exists.
func (m *Manager) restore(ctx context.Context, targets []target, trunk, headBefore string) error {
	current, _ := m.repo.CurrentBranch(ctx)
	var currentTarget *target
	for i := range targets {
		if current != "" && targets[i].branch == current {
			currentTarget = &targets[i]
		}
	}
	if currentTarget != nil {
		if err := m.repo.CheckoutDetached(ctx, "HEAD"); err != nil {
			return err
		}
	}

	var errs error
	for _, t := range targets {
		errs = multierr.Append(errs, m.setRef(ctx, git.BranchRefName(t.branch), t.head))
		errs = multierr.Append(errs, m.setRef(ctx, git.MetadataRefName(t.branch), t.meta))
	}

	if currentTarget != nil {
		next := current
		if currentTarget.head == "" {
			next = trunk
			if headBefore != "" && headBefore != current && m.repo.BranchExists(ctx, headBefore) {
				next = headBefore
			}
		}
		errs = multierr.Append(errs, m.repo.Checkout(ctx, next))
	}
	return errs
}

func (m *Manager) setRef(ctx context.Context, name, sha string) error {
	if sha == "" {
		return m.repo.DeleteRef(ctx, name)
	}
	return m.repo.UpdateRef(ctx, name, sha)
}

func (m *Manager) setRemote(ctx context.Context, remote, branch, sha string) error {
	if sha == "" {
		return m.repo.DeleteRemoteBranch(ctx, remote, branch)
	}
	return m.repo.PushRef(ctx, remote, sha, branch)
}

// dropRedo forgets the pending redo and its pinned refs
func (m *Manager) dropRedo(ctx context.Context) error {
	if opID, ok := m.store.Redo(); ok {
		if err := m.deleteRedoRefs(ctx, opID); err != nil {
			return err
		}
	}
	return m.store.ClearRedo()
}

func (m *Manager) deleteRedoRefs(ctx context.Context, opID string) error {
	prefix := git.RedoRefPrefix + opID + "/"
	refs, err := m.repo.ListRefs(ctx, prefix)
	if err != nil {
		return err
	}
	var errs error
	for name := range refs {
		errs = multierr.Append(errs, m.repo.DeleteRef(ctx, prefix+name))
	}
	return errs
}
