package git

import (
	"context"
	"encoding/json"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// Meta represents branch metadata stored in Git refs
type Meta struct {
	ParentBranchName     *string `json:"parentBranchName,omitempty"`
	ParentBranchRevision *string `json:"parentBranchRevision,omitempty"`
	PrInfo               *PrInfo `json:"prInfo,omitempty"`
}

// PrInfo represents the pull request attached to a branch
type PrInfo struct {
	Number   *int    `json:"number,omitempty"`
	State    *string `json:"state,omitempty"`
	Provider *string `json:"provider,omitempty"`
	Base     *string `json:"base,omitempty"`
}

// ReadMetadataRef reads metadata for a branch. The bool is false when the branch has none.
func (r *Repository) ReadMetadataRef(ctx context.Context, branch string) (*Meta, bool, error) {
	sha, ok, err := r.ResolveRef(ctx, MetadataRefName(branch))
	if err != nil || !ok {
		return nil, false, err
	}
	meta, err := decodeMeta(r.repo, sha)
	if err != nil {
		return nil, false, err
	}
	return meta, true, nil
}

// WriteMetadataRef writes metadata for a branch as a blob and points its ref at it
func (r *Repository) WriteMetadataRef(ctx context.Context, branch string, meta *Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	sha, err := r.HashObject(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to create metadata blob: %w", err)
	}

	return r.UpdateRef(ctx, MetadataRefName(branch), sha)
}

// DeleteMetadataRef deletes the metadata ref for a branch
func (r *Repository) DeleteMetadataRef(ctx context.Context, branch string) error {
	return r.DeleteRef(ctx, MetadataRefName(branch))
}

// ListMetadataRefs returns the metadata blob id of every tracked branch
func (r *Repository) ListMetadataRefs(ctx context.Context) (map[string]string, error) {
	return r.ListRefs(ctx, MetadataRefPrefix)
}

// DecodeMetadata reads and parses a metadata blob
func (r *Repository) DecodeMetadata(_ context.Context, sha string) (*Meta, error) {
	return decodeMeta(r.repo, sha)
}

func decodeMeta(repo *gogit.Repository, sha string) (*Meta, error) {
	content, err := readBlob(repo, sha)
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(content, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata blob %s: %w", sha, err)
	}
	return &meta, nil
}
