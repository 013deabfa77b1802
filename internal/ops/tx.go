package ops

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"stackit.dev/stackcore/internal/git"
)

// Tx is an open transaction. It holds the operation lock until it is
// committed, failed or aborted; a paused operation keeps it open across processes.
type Tx struct {
	manager *Manager
	receipt *Receipt
}

// OpID returns the operation id
func (t *Tx) OpID() string {
	return t.receipt.OpID
}

// Kind returns the operation kind
func (t *Tx) Kind() Kind {
	return t.receipt.Kind
}

// Trunk returns the trunk recorded when the transaction began
func (t *Tx) Trunk() string {
	return t.receipt.Trunk
}

// HeadBranchBefore returns the branch checked out when the transaction began
func (t *Tx) HeadBranchBefore() string {
	return t.receipt.HeadBranchBefore
}

// Branches returns the branches snapshotted so far
func (t *Tx) Branches() []string {
	return t.receipt.Branches()
}

// Track snapshots branch before it is mutated. Tracking a branch twice keeps the first snapshot.
func (t *Tx) Track(ctx context.Context, branch string) error {
	if t.receipt.Entry(branch) != nil {
		return nil
	}
	repo := t.manager.repo

	var head string
	if repo.BranchExists(ctx, branch) {
		sha, err := repo.HeadOf(ctx, branch)
		if err != nil {
			return err
		}
		head = sha
	}
	meta, _, err := repo.ResolveRef(ctx, git.MetadataRefName(branch))
	if err != nil {
		return err
	}

	if head != "" {
		if err := repo.UpdateRef(ctx, BackupHeadRef(t.receipt.OpID, branch), head); err != nil {
			return fmt.Errorf("failed to back up %s: %w", branch, err)
		}
	}
	if meta != "" {
		if err := repo.UpdateRef(ctx, BackupMetaRef(t.receipt.OpID, branch), meta); err != nil {
			return fmt.Errorf("failed to back up metadata of %s: %w", branch, err)
		}
	}

	t.receipt.Entries = append(t.receipt.Entries, Entry{
		Branch:        branch,
		PriorRevision: head,
		PriorMetadata: meta,
	})
	return t.manager.store.SaveOpen(t.receipt)
}

// MarkForcePushed records that branch was force-pushed to remote, which
// previously held remotePrior ("" when the remote branch did not exist)
func (t *Tx) MarkForcePushed(ctx context.Context, branch, remote, remotePrior string) error {
	if err := t.Track(ctx, branch); err != nil {
		return err
	}
	entry := t.receipt.Entry(branch)
	if entry.ForcePushed {
		return t.manager.store.SaveOpen(t.receipt)
	}
	entry.ForcePushed = true
	entry.Remote = remote
	entry.RemotePriorRevision = remotePrior
	return t.manager.store.SaveOpen(t.receipt)
}

// Commit records the new state of every touched branch and releases the lock.
// Branches that did not change are dropped; when nothing changed no receipt
// is written and nil is returned.
func (t *Tx) Commit(ctx context.Context, summary string) (*Receipt, error) {
	m := t.manager
	repo := m.repo

	kept := make([]Entry, 0, len(t.receipt.Entries))
	for _, e := range t.receipt.Entries {
		if repo.BranchExists(ctx, e.Branch) {
			sha, err := repo.HeadOf(ctx, e.Branch)
			if err != nil {
				return nil, err
			}
			e.NewRevision = sha
		}
		meta, _, err := repo.ResolveRef(ctx, git.MetadataRefName(e.Branch))
		if err != nil {
			return nil, err
		}
		e.NewMetadata = meta

		if e.NewRevision == e.PriorRevision && e.NewMetadata == e.PriorMetadata && !e.ForcePushed {
			if err := t.deleteBackups(ctx, e.Branch); err != nil {
				return nil, err
			}
			continue
		}
		kept = append(kept, e)
	}

	if len(kept) == 0 {
		m.splog.Debug("Operation %s changed nothing; no receipt written", t.receipt.OpID)
		return nil, m.store.Unlock()
	}

	t.receipt.Entries = kept
	t.receipt.FinishedAt = m.now().UTC()
	t.receipt.Summary = summary
	if err := m.store.SaveReceipt(t.receipt); err != nil {
		return nil, err
	}
	if err := m.dropRedo(ctx); err != nil {
		return nil, err
	}
	if err := m.store.Unlock(); err != nil {
		return nil, err
	}
	return t.receipt, nil
}

// Fail releases the lock without writing a receipt. Backup refs are kept so
// the prior heads stay recoverable by hand. The cause is returned.
func (t *Tx) Fail(_ context.Context, cause error) error {
	m := t.manager
	if len(t.receipt.Entries) > 0 {
		m.splog.Warn("Operation %s did not complete; prior branch heads are kept under %s%s/",
			t.receipt.OpID, git.BackupRefPrefix, t.receipt.OpID)
	}
	return multierr.Append(cause, m.store.Unlock())
}

// Abort rolls every touched branch and its metadata back to the snapshot,
// removes the backups and releases the lock. The cause, if any, is returned
// along with any restore failures.
func (t *Tx) Abort(ctx context.Context, cause error) error {
	m := t.manager
	var errs error

	if m.repo.IsRebaseInProgress(ctx) {
		errs = multierr.Append(errs, m.repo.RebaseAbort(ctx))
	}

	targets := make([]target, 0, len(t.receipt.Entries))
	for _, e := range t.receipt.Entries {
		targets = append(targets, target{branch: e.Branch, head: e.PriorRevision, meta: e.PriorMetadata})
	}
	restoreErr := m.restore(ctx, targets, t.receipt.Trunk, t.receipt.HeadBranchBefore)
	errs = multierr.Append(errs, restoreErr)

	if restoreErr == nil {
		if before := t.receipt.HeadBranchBefore; before != "" && m.repo.BranchExists(ctx, before) {
			if current, _ := m.repo.CurrentBranch(ctx); current != before {
				errs = multierr.Append(errs, m.repo.Checkout(ctx, before))
			}
		}
		for _, e := range t.receipt.Entries {
			errs = multierr.Append(errs, t.deleteBackups(ctx, e.Branch))
		}
	}
	errs = multierr.Append(errs, m.store.Unlock())

	if errs != nil {
		m.splog.Warn("Rollback of %s was incomplete; backups are kept under %s%s/",
			t.receipt.OpID, git.BackupRefPrefix, t.receipt.OpID)
	}
	return multierr.Append(cause, errs)
}

func (t *Tx) deleteBackups(ctx context.Context, branch string) error {
	repo := t.manager.repo
	return multierr.Combine(
		repo.DeleteRef(ctx, BackupHeadRef(t.receipt.OpID, branch)),
		repo.DeleteRef(ctx, BackupMetaRef(t.receipt.OpID, branch)),
	)
}
