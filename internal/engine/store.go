package engine

import (
	"context"
	"fmt"
	"sort"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/git"
)

// MetadataStore persists Nodes as metadata refs
type MetadataStore struct {
	repo *git.Repository
}

// NewMetadataStore creates a store backed by repo
func NewMetadataStore(repo *git.Repository) *MetadataStore {
	return &MetadataStore{repo: repo}
}

// Load returns the record for branch, or an error matching ErrNotTracked
func (s *MetadataStore) Load(ctx context.Context, branch string) (*Node, error) {
	meta, ok, err := s.repo.ReadMetadataRef(ctx, branch)
	if err != nil {
		return nil, stackiterrors.NewStoreError("read", branch, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", branch, stackiterrors.ErrNotTracked)
	}
	return nodeFromMeta(branch, meta), nil
}

// IsTracked reports whether branch has a record
func (s *MetadataStore) IsTracked(ctx context.Context, branch string) bool {
	_, ok, err := s.repo.ResolveRef(ctx, git.MetadataRefName(branch))
	return err == nil && ok
}

// Save writes the record for node.Name
func (s *MetadataStore) Save(ctx context.Context, node *Node) error {
	if err := s.repo.WriteMetadataRef(ctx, node.Name, metaFromNode(node)); err != nil {
		return stackiterrors.NewStoreError("write", node.Name, err)
	}
	return nil
}

// Delete removes the record for branch
func (s *MetadataStore) Delete(ctx context.Context, branch string) error {
	if err := s.repo.DeleteMetadataRef(ctx, branch); err != nil {
		return stackiterrors.NewStoreError("delete", branch, err)
	}
	return nil
}

// List returns every record, sorted by branch name
func (s *MetadataStore) List(ctx context.Context) ([]*Node, error) {
	refs, err := s.repo.ListMetadataRefs(ctx)
	if err != nil {
		return nil, stackiterrors.NewStoreError("list", "*", err)
	}

	nodes := make([]*Node, 0, len(refs))
	for branch, sha := range refs {
		meta, err := s.repo.DecodeMetadata(ctx, sha)
		if err != nil {
			return nil, stackiterrors.NewStoreError("read", branch, err)
		}
		nodes = append(nodes, nodeFromMeta(branch, meta))
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// SetPR attaches pr to branch's record
func (s *MetadataStore) SetPR(ctx context.Context, branch string, pr *PRRef) error {
	node, err := s.Load(ctx, branch)
	if err != nil {
		return err
	}
	node.PR = pr
	return s.Save(ctx, node)
}

func nodeFromMeta(branch string, meta *git.Meta) *Node {
	node := &Node{Name: branch}
	if meta.ParentBranchName != nil {
		node.Parent = *meta.ParentBranchName
	}
	if meta.ParentBranchRevision != nil {
		node.ParentRevision = *meta.ParentBranchRevision
	}
	if pr := meta.PrInfo; pr != nil && pr.Number != nil {
		node.PR = &PRRef{Number: *pr.Number}
		if pr.State != nil {
			node.PR.State = *pr.State
		}
		if pr.Provider != nil {
			node.PR.Provider = *pr.Provider
		}
		if pr.Base != nil {
			node.PR.Base = *pr.Base
		}
	}
	return node
}

func metaFromNode(node *Node) *git.Meta {
	meta := &git.Meta{}
	if node.Parent != "" {
		meta.ParentBranchName = stringPtr(node.Parent)
	}
	if node.ParentRevision != "" {
		meta.ParentBranchRevision = stringPtr(node.ParentRevision)
	}
	if node.PR != nil {
		number := node.PR.Number
		meta.PrInfo = &git.PrInfo{Number: &number}
		if node.PR.State != "" {
			meta.PrInfo.State = stringPtr(node.PR.State)
		}
		if node.PR.Provider != "" {
			meta.PrInfo.Provider = stringPtr(node.PR.Provider)
		}
		if node.PR.Base != "" {
			meta.PrInfo.Base = stringPtr(node.PR.Base)
		}
	}
	return meta
}

func stringPtr(s string) *string {
	return &s
}
