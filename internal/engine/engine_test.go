package engine_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/git"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/testhelpers"
)

func newEngine(t *testing.T, scene *testhelpers.Scene) *engine.Engine {
	t.Helper()
	repo, err := git.OpenRepository(context.Background(), scene.Dir)
	require.NoError(t, err)
	return engine.New(repo, "main", "origin", output.NewSplogWithWriter(io.Discard))
}

func revision(t *testing.T, scene *testhelpers.Scene, rev string) string {
	t.Helper()
	sha, err := scene.Repo.GetRevision(rev)
	require.NoError(t, err)
	return sha
}

func TestMetadataStore(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
	eng := newEngine(t, scene)
	store := eng.Store()

	_, err := store.Load(ctx, "main")
	require.ErrorIs(t, err, stackiterrors.ErrNotTracked)

	node, err := store.Load(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "a", node.Parent)
	require.Equal(t, revision(t, scene, "a"), node.ParentRevision)
	require.Nil(t, node.PR)

	require.NoError(t, store.SetPR(ctx, "b", testhelpers.NewTestPRRef(42, "a")))
	node, err = store.Load(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, &engine.PRRef{Number: 42, State: "OPEN", Provider: "github", Base: "a"}, node.PR)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].Name)
	require.Equal(t, "b", all[1].Name)

	require.NoError(t, store.Delete(ctx, "b"))
	require.False(t, store.IsTracked(ctx, "b"))
}

func TestRestackBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("up to date branch is left alone", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
		eng := newEngine(t, scene)
		before := revision(t, scene, "b")

		outcome, err := eng.RestackBranch(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, engine.RestackUnneeded, outcome.Result)
		require.Equal(t, before, revision(t, scene, "b"))
	})

	t.Run("branch moves onto its parent's new head", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
		require.NoError(t, scene.Repo.AdvanceBranch("a", "a 2", "a2"))
		eng := newEngine(t, scene)

		needs, err := eng.NeedsRestack(ctx, "b")
		require.NoError(t, err)
		require.True(t, needs)

		outcome, err := eng.RestackBranch(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, engine.RestackDone, outcome.Result)
		require.Equal(t, revision(t, scene, "a"), outcome.ParentHead)
		require.True(t, scene.Repo.IsAncestor("a", "b"))

		count, err := scene.Repo.GetCommitCount("a", "b")
		require.NoError(t, err)
		require.Equal(t, 1, count)

		needs, err = eng.NeedsRestack(ctx, "b")
		require.NoError(t, err)
		require.False(t, needs)
	})

	t.Run("conflict pauses until continued", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
		require.NoError(t, scene.Repo.AdvanceBranch("a", "conflicting", "b"))
		eng := newEngine(t, scene)

		outcome, err := eng.RestackBranch(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, engine.RestackConflict, outcome.Result)
		require.True(t, eng.Repo().IsRebaseInProgress(ctx))

		node, err := eng.Store().Load(ctx, "b")
		require.NoError(t, err)
		require.NotEqual(t, outcome.ParentHead, node.ParentRevision)

		require.NoError(t, scene.Repo.ResolveMergeConflicts())
		require.NoError(t, scene.Repo.MarkMergeConflictsAsResolved())
		result, err := eng.ContinueRestack(ctx, outcome.Branch, outcome.Parent, outcome.ParentHead)
		require.NoError(t, err)
		require.Equal(t, engine.RestackDone, result)

		node, err = eng.Store().Load(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, outcome.ParentHead, node.ParentRevision)
		require.True(t, scene.Repo.IsAncestor("a", "b"))
	})

	t.Run("orphaned branch restacks onto trunk", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
		require.NoError(t, scene.Repo.CheckoutBranch("main"))
		require.NoError(t, scene.Repo.DeleteBranch("a"))
		eng := newEngine(t, scene)

		parent, err := eng.ParentOf(ctx, "b")
		require.ErrorIs(t, err, stackiterrors.ErrMissingParent)
		require.Equal(t, "main", parent)

		outcome, err := eng.RestackBranch(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, engine.RestackDone, outcome.Result)
		require.True(t, outcome.Reparented)
		require.Equal(t, "a", outcome.OldParent)

		node, err := eng.Store().Load(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, "main", node.Parent)

		count, err := scene.Repo.GetCommitCount("main", "b")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("trunk cannot be restacked", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		eng := newEngine(t, scene)
		_, err := eng.RestackBranch(ctx, "main")
		require.ErrorIs(t, err, stackiterrors.ErrTrunkOperation)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a", "hotfix", "main"))
	require.NoError(t, scene.Repo.AdvanceBranch("a", "a 2", "a2"))
	require.NoError(t, scene.Repo.CheckoutBranch("b"))
	eng := newEngine(t, scene)

	rows, err := eng.Status(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	names := []string{rows[0].Name, rows[1].Name, rows[2].Name, rows[3].Name}
	require.Equal(t, []string{"a", "b", "hotfix", "main"}, names)

	require.False(t, rows[0].NeedsRestack)
	require.Equal(t, git.AheadBehind{Ahead: 2, Behind: 0, Known: true}, rows[0].AheadBehind)

	require.True(t, rows[1].IsCurrent)
	require.True(t, rows[1].NeedsRestack)
	require.Equal(t, 2, rows[1].Depth)
	require.Equal(t, git.AheadBehind{Ahead: 1, Behind: 1, Known: true}, rows[1].AheadBehind)

	require.True(t, rows[3].IsTrunk)
	require.False(t, eng.Repo().IsRebaseInProgress(ctx))
}

func TestStatusUntrackedParent(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
	eng := newEngine(t, scene)
	// a keeps its branch but loses its metadata
	require.NoError(t, eng.Store().Delete(ctx, "a"))

	parent, err := eng.ParentOf(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "a", parent)

	rows, err := eng.Status(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "b", rows[0].Name)
	require.Equal(t, parent, rows[0].Parent)
	require.False(t, rows[0].Orphaned)
	require.False(t, rows[0].NeedsRestack)

	needs, err := eng.NeedsRestack(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, needs, rows[0].NeedsRestack)
}

func TestTrackAndUntrack(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
	require.NoError(t, scene.Repo.CreateAndCheckoutBranch("c"))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("c", "c"))
	eng := newEngine(t, scene)

	require.ErrorIs(t, eng.Track(ctx, "main", "a"), stackiterrors.ErrTrunkOperation)
	require.ErrorIs(t, eng.Track(ctx, "c", "nope"), stackiterrors.ErrBranchNotFound)

	require.NoError(t, eng.Track(ctx, "c", "b"))
	node, err := eng.Store().Load(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, "b", node.Parent)
	require.Equal(t, revision(t, scene, "b"), node.ParentRevision)

	children, err := eng.Untrack(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, children)

	node, err = eng.Store().Load(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, "a", node.Parent)
	require.Equal(t, revision(t, scene, "a"), node.ParentRevision)

	needs, err := eng.NeedsRestack(ctx, "c")
	require.NoError(t, err)
	require.False(t, needs)
}
