package actions_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/testhelpers"
)

// splitSetup builds main <- big(3 commits) <- top and leaves big checked out
func splitSetup(scene *testhelpers.Scene) error {
	if err := testhelpers.StackSetup("big", "main")(scene); err != nil {
		return err
	}
	if err := scene.Repo.AdvanceBranch("big", "big 2", "big2"); err != nil {
		return err
	}
	if err := scene.Repo.AdvanceBranch("big", "big 3", "big3"); err != nil {
		return err
	}
	if err := scene.Repo.CreateStackedBranch("top", "big"); err != nil {
		return err
	}
	return scene.Repo.CheckoutBranch("big")
}

func TestParseSplitPoint(t *testing.T) {
	p, err := actions.ParseSplitPoint("2:feature-api")
	require.NoError(t, err)
	require.Equal(t, engine.SplitPoint{Count: 2, Name: "feature-api"}, p)

	p, err = actions.ParseSplitPoint("3")
	require.NoError(t, err)
	require.Equal(t, engine.SplitPoint{Count: 3}, p)

	_, err = actions.ParseSplitPoint("x:name")
	require.Error(t, err)
}

func TestSplitAction(t *testing.T) {
	points := []engine.SplitPoint{{Count: 1, Name: "one"}, {Count: 2, Name: "two"}, {Count: 3, Name: "three"}}

	t.Run("splits a branch into a chain", func(t *testing.T) {
		scene := testhelpers.NewScene(t, splitSetup)
		ctx := testhelpers.NewTestContext(t, scene, nil)
		head := rev(t, scene, "big")

		result, err := actions.SplitAction(ctx, actions.SplitOptions{Points: points})
		require.NoError(t, err)
		require.Equal(t, actions.StateDone, result.State)
		require.Equal(t, []string{"one", "two", "three"}, result.Branches)
		require.Equal(t, ops.KindSplit, result.Receipt.Kind)

		graph, err := ctx.Engine.Graph(ctx)
		require.NoError(t, err)
		require.False(t, graph.Has("big"))
		require.Equal(t, []string{"one", "two", "three", "top"}, graph.Stack("one"))
		require.Equal(t, head, rev(t, scene, "three"))
		require.True(t, scene.Repo.IsAncestor("three", "top"))
		require.Equal(t, "three", currentBranch(t, scene))

		messages, err := scene.Repo.ListCommitMessages("one", "two")
		require.NoError(t, err)
		require.Equal(t, []string{"big 2"}, messages)
	})

	t.Run("undo restores the single original branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, splitSetup)
		ctx := testhelpers.NewTestContext(t, scene, nil)
		head := rev(t, scene, "big")

		_, err := actions.SplitAction(ctx, actions.SplitOptions{Points: points})
		require.NoError(t, err)
		_, err = actions.UndoAction(ctx, actions.UndoOptions{})
		require.NoError(t, err)

		branches, err := scene.Repo.GetLocalBranches()
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"main", "big", "top"}, branches)
		require.Equal(t, head, rev(t, scene, "big"))

		parent, err := ctx.Engine.ParentOf(ctx, "top")
		require.NoError(t, err)
		require.Equal(t, "big", parent)
		require.False(t, ctx.Engine.Store().IsTracked(ctx, "one"))
		require.Equal(t, "big", currentBranch(t, scene))
	})

	t.Run("rejects trunk, untracked and single-commit branches", func(t *testing.T) {
		scene := testhelpers.NewScene(t, splitSetup)
		require.NoError(t, scene.Repo.CreateBranch("loose"))
		ctx := testhelpers.NewTestContext(t, scene, nil)

		_, err := actions.SplitAction(ctx, actions.SplitOptions{Branch: "main", Points: points})
		require.ErrorIs(t, err, stackiterrors.ErrTrunkOperation)

		_, err = actions.SplitAction(ctx, actions.SplitOptions{Branch: "loose", Points: points})
		require.ErrorIs(t, err, stackiterrors.ErrNotTracked)

		_, err = actions.SplitAction(ctx, actions.SplitOptions{Branch: "top", Points: points})
		require.Error(t, err)
		require.Contains(t, err.Error(), "at least 2")

		_, err = actions.SplitAction(ctx, actions.SplitOptions{Points: []engine.SplitPoint{{Count: 1, Name: "x"}, {Count: 2, Name: "y"}}})
		require.Error(t, err)

		receipts, err := ctx.Ops.List()
		require.NoError(t, err)
		require.Empty(t, receipts)
		require.True(t, ctx.Engine.Repo().BranchExists(ctx, "big"))
	})

	t.Run("a missing name fails without a terminal", func(t *testing.T) {
		t.Setenv("STACKIT_NON_INTERACTIVE", "1")
		scene := testhelpers.NewScene(t, splitSetup)
		ctx := testhelpers.NewTestContext(t, scene, nil)

		_, err := actions.SplitAction(ctx, actions.SplitOptions{Points: []engine.SplitPoint{{Count: 1}, {Count: 3, Name: "rest"}}})
		require.Error(t, err)
		require.True(t, ctx.Engine.Repo().BranchExists(ctx, "big"))
	})
}
