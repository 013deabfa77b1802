package git

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

func newMemoryRepo(t *testing.T) (*gogit.Repository, *memory.Storage) {
	t.Helper()
	storage := memory.NewStorage()
	repo, err := gogit.Init(storage, memfs.New())
	require.NoError(t, err)
	return repo, storage
}

func storeBlob(t *testing.T, storage *memory.Storage, content string) plumbing.Hash {
	t.Helper()
	obj := storage.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	hash, err := storage.SetEncodedObject(obj)
	require.NoError(t, err)
	return hash
}

func TestDecodeMeta(t *testing.T) {
	t.Run("decodes camelCase metadata with PR info", func(t *testing.T) {
		repo, storage := newMemoryRepo(t)
		hash := storeBlob(t, storage, `{"parentBranchName":"main","parentBranchRevision":"abc123","prInfo":{"number":7,"state":"OPEN","provider":"github","base":"main"}}`)

		meta, err := decodeMeta(repo, hash.String())
		require.NoError(t, err)
		require.Equal(t, "main", *meta.ParentBranchName)
		require.Equal(t, "abc123", *meta.ParentBranchRevision)
		require.NotNil(t, meta.PrInfo)
		require.Equal(t, 7, *meta.PrInfo.Number)
		require.Equal(t, "OPEN", *meta.PrInfo.State)
		require.Equal(t, "github", *meta.PrInfo.Provider)
	})

	t.Run("missing fields stay nil", func(t *testing.T) {
		repo, storage := newMemoryRepo(t)
		hash := storeBlob(t, storage, `{"parentBranchName":"feature"}`)

		meta, err := decodeMeta(repo, hash.String())
		require.NoError(t, err)
		require.Equal(t, "feature", *meta.ParentBranchName)
		require.Nil(t, meta.ParentBranchRevision)
		require.Nil(t, meta.PrInfo)
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		repo, storage := newMemoryRepo(t)
		hash := storeBlob(t, storage, `not json`)

		_, err := decodeMeta(repo, hash.String())
		require.Error(t, err)
	})

	t.Run("unknown blob is an error", func(t *testing.T) {
		repo, _ := newMemoryRepo(t)
		_, err := decodeMeta(repo, plumbing.ZeroHash.String())
		require.Error(t, err)
	})
}

func TestListRefs(t *testing.T) {
	repo, storage := newMemoryRepo(t)
	blob := storeBlob(t, storage, `{}`)

	for _, name := range []string{
		MetadataRefName("feature"),
		MetadataRefName("team/login"),
		BackupRefPrefix + "20250101T000000Z-abcdef/heads/feature",
	} {
		require.NoError(t, storage.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), blob)))
	}

	refs, err := listRefs(repo, MetadataRefPrefix)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"feature":    blob.String(),
		"team/login": blob.String(),
	}, refs)

	sha, ok, err := resolveRef(repo, MetadataRefName("feature"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blob.String(), sha)

	_, ok, err = resolveRef(repo, MetadataRefName("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseLeftRightCount(t *testing.T) {
	require.Equal(t, AheadBehind{Ahead: 3, Behind: 1, Known: true}, parseLeftRightCount("1\t3"))
	require.Equal(t, UnknownAheadBehind, parseLeftRightCount(""))
	require.Equal(t, UnknownAheadBehind, parseLeftRightCount("x 2"))
	require.Equal(t, "-", UnknownAheadBehind.String())
	require.Equal(t, "+2/-0", AheadBehind{Ahead: 2, Known: true}.String())
}
