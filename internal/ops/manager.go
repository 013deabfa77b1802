package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/output"
)

// Repo is the subset of the VCS backend the transaction manager drives
type Repo interface {
	GitDir() string
	HeadOf(ctx context.Context, branch string) (string, error)
	BranchExists(ctx context.Context, branch string) bool
	CurrentBranch(ctx context.Context) (string, error)
	ResolveRef(ctx context.Context, name string) (string, bool, error)
	UpdateRef(ctx context.Context, name, sha string) error
	DeleteRef(ctx context.Context, name string) error
	ListRefs(ctx context.Context, prefix string) (map[string]string, error)
	IsRebaseInProgress(ctx context.Context) bool
	RebaseAbort(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
	Stash(ctx context.Context, message string) error
	Checkout(ctx context.Context, branch string) error
	CheckoutDetached(ctx context.Context, rev string) error
	PushRef(ctx context.Context, remote, commit, branch string) error
	DeleteRemoteBranch(ctx context.Context, remote, branch string) error
}

// Manager begins transactions and undoes or redoes committed ones
type Manager struct {
	repo  Repo
	store *Store
	splog *output.Splog
	now   func() time.Time
}

// NewManager creates a manager whose receipts live under <git-dir>/stackit/ops on fs
func NewManager(repo Repo, fs afero.Fs, splog *output.Splog) *Manager {
	return &Manager{
		repo:  repo,
		store: NewStore(fs, filepath.Join(repo.GitDir(), "stackit", "ops")),
		splog: splog,
		now:   time.Now,
	}
}

// Store returns the receipt store
func (m *Manager) Store() *Store {
	return m.store
}

// Begin opens a transaction and snapshots the given branches before anything mutates them
func (m *Manager) Begin(ctx context.Context, kind Kind, trunk string, branches ...string) (*Tx, error) {
	now := m.now()
	head, _ := m.repo.CurrentBranch(ctx)
	receipt := &Receipt{
		OpID:             newOpID(now),
		Kind:             kind,
		StartedAt:        now.UTC(),
		Trunk:            trunk,
		HeadBranchBefore: head,
		Entries:          []Entry{},
	}
	if err := m.store.Lock(receipt); err != nil {
		return nil, err
	}

	tx := &Tx{manager: m, receipt: receipt}
	for _, branch := range branches {
		if err := tx.Track(ctx, branch); err != nil {
			return nil, tx.Abort(ctx, err)
		}
	}
	m.splog.Debug("Began %s operation %s", kind, receipt.OpID)
	return tx, nil
}

// Resume reattaches to the transaction left open by a paused operation
func (m *Manager) Resume(_ context.Context) (*Tx, error) {
	receipt, err := m.store.LoadOpen()
	if err != nil {
		return nil, err
	}
	return &Tx{manager: m, receipt: receipt}, nil
}

// List returns every receipt, newest first
func (m *Manager) List() ([]*Receipt, error) {
	return m.store.ListReceipts()
}

// Latest returns the newest receipt that has not been undone
func (m *Manager) Latest() (*Receipt, error) {
	receipts, err := m.store.ListReceipts()
	if err != nil {
		return nil, err
	}
	for _, r := range receipts {
		if !r.Undone {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no operation to undo: %w", stackiterrors.ErrReceiptNotFound)
}
