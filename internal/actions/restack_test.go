package actions_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/config"
	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/testhelpers"
)

func rev(t *testing.T, scene *testhelpers.Scene, branch string) string {
	t.Helper()
	sha, err := scene.Repo.GetRevision(branch)
	require.NoError(t, err)
	return sha
}

func currentBranch(t *testing.T, scene *testhelpers.Scene) string {
	t.Helper()
	name, err := scene.Repo.CurrentBranchName()
	require.NoError(t, err)
	return name
}

// conflictScene builds main <- a <- b <- c and commits a change to b's file on a,
// so restacking b conflicts
func conflictScene(t *testing.T) *testhelpers.Scene {
	t.Helper()
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a", "c", "b"))
	require.NoError(t, scene.Repo.AdvanceBranch("a", "a touches b", "b"))
	require.NoError(t, scene.Repo.CheckoutBranch("c"))
	return scene
}

func TestRestackAction(t *testing.T) {
	t.Run("up to date stack writes no receipt", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
		ctx := testhelpers.NewTestContext(t, scene, nil)

		report, err := actions.RestackAction(ctx, actions.RestackOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, report.Unneeded)
		require.Empty(t, report.Restacked)
		require.Nil(t, report.Receipt)

		receipts, err := ctx.Ops.List()
		require.NoError(t, err)
		require.Empty(t, receipts)
	})

	t.Run("restacks descendants in order and returns to the original branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a", "c", "b"))
		require.NoError(t, scene.Repo.AdvanceBranch("a", "a 2", "a2"))
		require.NoError(t, scene.Repo.CheckoutBranch("b"))
		ctx := testhelpers.NewTestContext(t, scene, nil)
		priorB := rev(t, scene, "b")

		report, err := actions.RestackAction(ctx, actions.RestackOptions{})
		require.NoError(t, err)
		require.Equal(t, actions.StateDone, report.State)
		require.Equal(t, []string{"b", "c"}, report.Restacked)
		require.Equal(t, []string{"a"}, report.Unneeded)

		require.True(t, scene.Repo.IsAncestor("a", "b"))
		require.True(t, scene.Repo.IsAncestor("b", "c"))
		require.Equal(t, "b", currentBranch(t, scene))

		require.NotNil(t, report.Receipt)
		require.Equal(t, ops.KindRestack, report.Receipt.Kind)
		require.ElementsMatch(t, []string{"b", "c"}, report.Receipt.Branches())
		entry := report.Receipt.Entry("b")
		require.Equal(t, priorB, entry.PriorRevision)
		require.Equal(t, rev(t, scene, "b"), entry.NewRevision)

		needs, err := ctx.Engine.NeedsRestack(ctx, "c")
		require.NoError(t, err)
		require.False(t, needs)
	})

	t.Run("only scope leaves descendants alone", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a", "c", "b"))
		require.NoError(t, scene.Repo.AdvanceBranch("a", "a 2", "a2"))
		ctx := testhelpers.NewTestContext(t, scene, nil)
		priorC := rev(t, scene, "c")

		report, err := actions.RestackAction(ctx, actions.RestackOptions{Branch: "b", Scope: engine.ScopeOnly})
		require.NoError(t, err)
		require.Equal(t, []string{"b"}, report.Restacked)
		require.Equal(t, priorC, rev(t, scene, "c"))
	})

	t.Run("conflict pauses with the rest pending and keeps the transaction open", func(t *testing.T) {
		scene := conflictScene(t)
		ctx := testhelpers.NewTestContext(t, scene, nil)

		report, err := actions.RestackAction(ctx, actions.RestackOptions{})
		require.ErrorIs(t, err, stackiterrors.ErrRebaseConflict)
		require.Equal(t, actions.StatePaused, report.State)
		require.Equal(t, "b", report.Conflict)
		require.Equal(t, []string{"c"}, report.Pending)
		require.True(t, scene.Repo.RebaseInProgress())

		state, err := config.GetContinuationState(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, "b", state.RebasedBranch)
		require.Equal(t, "a", state.RebasedBranchParent)
		require.Equal(t, rev(t, scene, "a"), state.RebasedBranchBase)
		require.Equal(t, []string{"c"}, state.BranchesToRestack)
		require.Equal(t, "c", state.CurrentBranchOverride)

		_, err = actions.RestackAction(ctx, actions.RestackOptions{Branch: "a"})
		require.ErrorIs(t, err, stackiterrors.ErrRebaseInProgress)

		_, err = ctx.Ops.Begin(ctx, ops.KindTrack, "main")
		var open *stackiterrors.TransactionOpenError
		require.ErrorAs(t, err, &open)
		require.Equal(t, state.OpID, open.OpID)
	})
}

func TestContinueAction(t *testing.T) {
	t.Run("finishes the rebase and restacks the pending branches", func(t *testing.T) {
		scene := conflictScene(t)
		ctx := testhelpers.NewTestContext(t, scene, nil)

		_, err := actions.RestackAction(ctx, actions.RestackOptions{})
		require.ErrorIs(t, err, stackiterrors.ErrRebaseConflict)

		require.NoError(t, scene.Repo.ResolveMergeConflicts())
		report, err := actions.ContinueAction(ctx, actions.ContinueOptions{AddAll: true})
		require.NoError(t, err)
		require.Equal(t, actions.StateDone, report.State)
		require.Equal(t, []string{"b", "c"}, report.Restacked)
		require.False(t, scene.Repo.RebaseInProgress())

		require.True(t, scene.Repo.IsAncestor("a", "b"))
		require.True(t, scene.Repo.IsAncestor("b", "c"))
		require.Equal(t, "c", currentBranch(t, scene))

		_, err = config.GetContinuationState(scene.Dir)
		require.ErrorIs(t, err, stackiterrors.ErrNoTransaction)

		require.NotNil(t, report.Receipt)
		require.Equal(t, ops.KindRestack, report.Receipt.Kind)
		require.ElementsMatch(t, []string{"b", "c"}, report.Receipt.Branches())
	})

	t.Run("a rebase abandoned with git is started again instead of stamped", func(t *testing.T) {
		scene := conflictScene(t)
		ctx := testhelpers.NewTestContext(t, scene, nil)
		priorB := rev(t, scene, "b")

		_, err := actions.RestackAction(ctx, actions.RestackOptions{})
		require.ErrorIs(t, err, stackiterrors.ErrRebaseConflict)
		require.NoError(t, scene.Repo.RunGitCommand("rebase", "--abort"))
		require.Equal(t, priorB, rev(t, scene, "b"))

		report, err := actions.ContinueAction(ctx, actions.ContinueOptions{})
		require.ErrorIs(t, err, stackiterrors.ErrRebaseConflict)
		require.Equal(t, "b", report.Conflict)
		require.Empty(t, report.Restacked)
		require.True(t, scene.Repo.RebaseInProgress())
		needs, err := ctx.Engine.NeedsRestack(ctx, "b")
		require.NoError(t, err)
		require.True(t, needs)

		require.NoError(t, scene.Repo.ResolveMergeConflicts())
		report, err = actions.ContinueAction(ctx, actions.ContinueOptions{AddAll: true})
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c"}, report.Restacked)
		require.True(t, scene.Repo.IsAncestor("a", "b"))
		require.True(t, scene.Repo.IsAncestor("b", "c"))
	})

	t.Run("nothing to continue", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main"))
		ctx := testhelpers.NewTestContext(t, scene, nil)

		_, err := actions.ContinueAction(ctx, actions.ContinueOptions{})
		require.ErrorIs(t, err, stackiterrors.ErrNoTransaction)
	})
}

func TestAbortAction(t *testing.T) {
	t.Run("rolls every branch back to its snapshot", func(t *testing.T) {
		scene := conflictScene(t)
		ctx := testhelpers.NewTestContext(t, scene, nil)
		priorB := rev(t, scene, "b")
		priorC := rev(t, scene, "c")

		_, err := actions.RestackAction(ctx, actions.RestackOptions{})
		require.ErrorIs(t, err, stackiterrors.ErrRebaseConflict)

		require.NoError(t, actions.AbortAction(ctx))
		require.False(t, scene.Repo.RebaseInProgress())
		require.Equal(t, priorB, rev(t, scene, "b"))
		require.Equal(t, priorC, rev(t, scene, "c"))
		require.Equal(t, "c", currentBranch(t, scene))

		receipts, err := ctx.Ops.List()
		require.NoError(t, err)
		require.Empty(t, receipts)

		tx, err := ctx.Ops.Begin(ctx, ops.KindTrack, "main")
		require.NoError(t, err)
		_, err = tx.Commit(ctx, "")
		require.NoError(t, err)
	})

	t.Run("nothing to abort", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main"))
		ctx := testhelpers.NewTestContext(t, scene, nil)

		require.ErrorIs(t, actions.AbortAction(ctx), stackiterrors.ErrNoTransaction)
	})
}

func TestUndoRedoAction(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
	require.NoError(t, scene.Repo.AdvanceBranch("a", "a 2", "a2"))
	ctx := testhelpers.NewTestContext(t, scene, nil)
	priorB := rev(t, scene, "b")

	report, err := actions.RestackAction(ctx, actions.RestackOptions{})
	require.NoError(t, err)
	restackedB := rev(t, scene, "b")
	require.NotEqual(t, priorB, restackedB)

	undone, err := actions.UndoAction(ctx, actions.UndoOptions{})
	require.NoError(t, err)
	require.Equal(t, report.Receipt.OpID, undone.OpID)
	require.Equal(t, priorB, rev(t, scene, "b"))
	needs, err := ctx.Engine.NeedsRestack(ctx, "b")
	require.NoError(t, err)
	require.True(t, needs)

	_, err = actions.RedoAction(ctx, false)
	require.NoError(t, err)
	require.Equal(t, restackedB, rev(t, scene, "b"))

	_, err = actions.RedoAction(ctx, false)
	require.ErrorIs(t, err, stackiterrors.ErrRedoUnavailable)

	receipts, err := actions.OpsAction(ctx)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.False(t, receipts[0].Undone)
}

func TestUndoActionDuringRebase(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
	require.NoError(t, scene.Repo.AdvanceBranch("a", "a 2", "a2"))
	ctx := testhelpers.NewTestContext(t, scene, nil)
	priorB := rev(t, scene, "b")

	_, err := actions.RestackAction(ctx, actions.RestackOptions{})
	require.NoError(t, err)
	require.NotEqual(t, priorB, rev(t, scene, "b"))

	// a rebase started with git itself, stopped on a conflict
	require.NoError(t, scene.Repo.AdvanceBranch("main", "main touches a", "a"))
	require.NoError(t, scene.Repo.CheckoutBranch("a"))
	require.Error(t, scene.Repo.RunGitCommand("rebase", "main"))
	require.True(t, scene.Repo.RebaseInProgress())

	_, err = actions.UndoAction(ctx, actions.UndoOptions{})
	require.NoError(t, err)
	require.False(t, scene.Repo.RebaseInProgress())
	require.Equal(t, priorB, rev(t, scene, "b"))

	// redo also clears a rebase left in progress
	require.Error(t, scene.Repo.RunGitCommand("rebase", "main"))
	require.True(t, scene.Repo.RebaseInProgress())
	_, err = actions.RedoAction(ctx, false)
	require.NoError(t, err)
	require.False(t, scene.Repo.RebaseInProgress())
	require.True(t, scene.Repo.IsAncestor("a", "b"))
}
