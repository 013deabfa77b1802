package git

import (
	"context"
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Ref namespaces owned by stackit
const (
	MetadataRefPrefix = "refs/stackit/metadata/"
	BackupRefPrefix   = "refs/stackit/backups/"
	RedoRefPrefix     = "refs/stackit/redo/"
)

// MetadataRefName returns the ref holding a branch's metadata blob
func MetadataRefName(branch string) string {
	return MetadataRefPrefix + branch
}

// BranchRefName returns the full ref name of a local branch
func BranchRefName(branch string) string {
	return plumbing.NewBranchReferenceName(branch).String()
}

// ResolveRef returns the object a ref points at, and false when the ref does not exist
func (r *Repository) ResolveRef(_ context.Context, name string) (string, bool, error) {
	return resolveRef(r.repo, name)
}

func resolveRef(repo *gogit.Repository, name string) (string, bool, error) {
	ref, err := repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	return ref.Hash().String(), true, nil
}

// ListRefs returns every ref under prefix keyed by the name with prefix stripped
func (r *Repository) ListRefs(_ context.Context, prefix string) (map[string]string, error) {
	return listRefs(r.repo, prefix)
}

func listRefs(repo *gogit.Repository, prefix string) (map[string]string, error) {
	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to get references: %w", err)
	}

	result := make(map[string]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name().String()
		if strings.HasPrefix(name, prefix) {
			result[strings.TrimPrefix(name, prefix)] = ref.Hash().String()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return result, nil
}

// UpdateRef points a ref at the given object, creating it if needed
func (r *Repository) UpdateRef(ctx context.Context, name, sha string) error {
	if _, err := r.runner.Run(ctx, "update-ref", name, sha); err != nil {
		return fmt.Errorf("failed to update %s: %w", name, err)
	}
	return nil
}

// DeleteRef removes a ref; deleting a missing ref is not an error
func (r *Repository) DeleteRef(ctx context.Context, name string) error {
	if _, ok, err := r.ResolveRef(ctx, name); err != nil || !ok {
		return err
	}
	if _, err := r.runner.Run(ctx, "update-ref", "-d", name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// HashObject writes data as a blob and returns its id
func (r *Repository) HashObject(ctx context.Context, data []byte) (string, error) {
	sha, err := r.runner.RunWithInput(ctx, string(data), "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return sha, nil
}

// ReadBlob returns the contents of a blob
func (r *Repository) ReadBlob(_ context.Context, sha string) ([]byte, error) {
	return readBlob(r.repo, sha)
}

func readBlob(repo *gogit.Repository, sha string) ([]byte, error) {
	blob, err := repo.BlobObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", sha, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", sha, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", sha, err)
	}
	return content, nil
}
