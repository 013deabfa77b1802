package engine

import (
	"context"
	"errors"
	"fmt"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/git"
	"stackit.dev/stackcore/internal/output"
)

// Engine ties the metadata store to the repository it describes
type Engine struct {
	repo   *git.Repository
	store  *MetadataStore
	trunk  string
	remote string
	splog  *output.Splog
}

// New creates an engine for repo
func New(repo *git.Repository, trunk, remote string, splog *output.Splog) *Engine {
	return &Engine{
		repo:   repo,
		store:  NewMetadataStore(repo),
		trunk:  trunk,
		remote: remote,
		splog:  splog,
	}
}

// Repo returns the underlying repository
func (e *Engine) Repo() *git.Repository {
	return e.repo
}

// Store returns the metadata store
func (e *Engine) Store() *MetadataStore {
	return e.store
}

// Trunk returns the trunk branch name
func (e *Engine) Trunk() string {
	return e.trunk
}

// Remote returns the remote branches are pushed to
func (e *Engine) Remote() string {
	return e.remote
}

// Splog returns the logger
func (e *Engine) Splog() *output.Splog {
	return e.splog
}

// IsTrunk reports whether branch is trunk
func (e *Engine) IsTrunk(branch string) bool {
	return branch == e.trunk
}

// CurrentBranch returns the checked-out branch, or "" when HEAD is detached
func (e *Engine) CurrentBranch(ctx context.Context) string {
	branch, err := e.repo.CurrentBranch(ctx)
	if err != nil {
		return ""
	}
	return branch
}

// Graph builds the stack forest from the metadata of every existing tracked branch
func (e *Engine) Graph(ctx context.Context) (*Graph, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	live := records[:0]
	for _, n := range records {
		if e.repo.BranchExists(ctx, n.Name) {
			live = append(live, n)
		}
	}
	return BuildGraph(e.trunk, live, func(branch string) bool {
		return e.repo.BranchExists(ctx, branch)
	})
}

// ParentOf returns the parent recorded for branch. When that parent no longer
// exists trunk is returned together with ErrMissingParent.
func (e *Engine) ParentOf(ctx context.Context, branch string) (string, error) {
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return "", err
	}
	return e.effectiveParent(ctx, node)
}

func (e *Engine) effectiveParent(ctx context.Context, node *Node) (string, error) {
	parent, orphaned := resolveParent(e.trunk, node.Parent, func(branch string) bool {
		return e.repo.BranchExists(ctx, branch)
	})
	if orphaned {
		return parent, fmt.Errorf("%s: parent %q: %w", node.Name, node.Parent, stackiterrors.ErrMissingParent)
	}
	return parent, nil
}

// NeedsRestack reports whether branch's parent head differs from its stamped parent revision
func (e *Engine) NeedsRestack(ctx context.Context, branch string) (bool, error) {
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return false, err
	}
	parent, err := e.effectiveParent(ctx, node)
	if errors.Is(err, stackiterrors.ErrMissingParent) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	parentHead, err := e.repo.HeadOf(ctx, parent)
	if err != nil {
		return false, err
	}
	return node.ParentRevision != parentHead, nil
}

// Track records parent for branch, stamping the merge-base as the parent revision
func (e *Engine) Track(ctx context.Context, branch, parent string) error {
	if branch == e.trunk {
		return fmt.Errorf("cannot track %s: %w", branch, stackiterrors.ErrTrunkOperation)
	}
	if !e.repo.BranchExists(ctx, branch) {
		return stackiterrors.NewBranchNotFoundError(branch)
	}
	if !e.repo.BranchExists(ctx, parent) {
		return stackiterrors.NewBranchNotFoundError(parent)
	}
	if parent != e.trunk && !e.store.IsTracked(ctx, parent) {
		return fmt.Errorf("parent %s: %w", parent, stackiterrors.ErrNotTracked)
	}
	base, err := e.repo.MergeBase(ctx, parent, branch)
	if err != nil {
		return err
	}

	node := &Node{Name: branch, Parent: parent, ParentRevision: base}
	if existing, err := e.store.Load(ctx, branch); err == nil {
		node.PR = existing.PR
	}
	return e.store.Save(ctx, node)
}

// Untrack removes branch's metadata, handing its children to its parent
func (e *Engine) Untrack(ctx context.Context, branch string) ([]string, error) {
	node, err := e.store.Load(ctx, branch)
	if err != nil {
		return nil, err
	}
	graph, err := e.Graph(ctx)
	if err != nil {
		return nil, err
	}
	parent, _ := e.effectiveParent(ctx, node)

	children := graph.Children(branch)
	for _, child := range children {
		childNode, err := e.store.Load(ctx, child)
		if err != nil {
			return nil, err
		}
		base, err := e.repo.MergeBase(ctx, parent, child)
		if err != nil {
			return nil, err
		}
		// the untracked branch's commits now belong to the child
		childNode.Parent = parent
		childNode.ParentRevision = base
		if err := e.store.Save(ctx, childNode); err != nil {
			return nil, err
		}
	}
	return children, e.store.Delete(ctx, branch)
}
