package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/testhelpers"
)

// threeCommitSetup builds main <- big(3 commits) <- top
func threeCommitSetup(scene *testhelpers.Scene) error {
	if err := testhelpers.StackSetup("big", "main")(scene); err != nil {
		return err
	}
	if err := scene.Repo.AdvanceBranch("big", "big 2", "big2"); err != nil {
		return err
	}
	if err := scene.Repo.AdvanceBranch("big", "big 3", "big3"); err != nil {
		return err
	}
	return scene.Repo.CreateStackedBranch("top", "big")
}

func TestApplySplit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a chain and moves children onto the last branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, threeCommitSetup)
		require.NoError(t, scene.Repo.CheckoutBranch("big"))
		eng := newEngine(t, scene)
		require.NoError(t, eng.Store().SetPR(ctx, "big", testhelpers.NewTestPRRef(7, "main")))

		base, commits, err := eng.SplitCommits(ctx, "big")
		require.NoError(t, err)
		require.Len(t, commits, 3)
		require.Equal(t, revision(t, scene, "main"), base)

		err = eng.ApplySplit(ctx, "big", []engine.SplitPoint{{Count: 1, Name: "one"}, {Count: 3, Name: "two"}})
		require.NoError(t, err)

		require.Equal(t, commits[0], revision(t, scene, "one"))
		require.Equal(t, commits[2], revision(t, scene, "two"))
		require.False(t, eng.Repo().BranchExists(ctx, "big"))
		require.False(t, eng.Store().IsTracked(ctx, "big"))

		graph, err := eng.Graph(ctx)
		require.NoError(t, err)
		require.Equal(t, "main", graph.Parent("one"))
		require.Equal(t, "one", graph.Parent("two"))
		require.Equal(t, "two", graph.Parent("top"))
		require.Equal(t, commits[0], graph.Node("two").ParentRevision)
		require.Equal(t, 7, graph.Node("two").PR.Number)
		require.Nil(t, graph.Node("one").PR)

		restack, err := eng.NeedsRestack(ctx, "top")
		require.NoError(t, err)
		require.False(t, restack)
		require.Equal(t, "two", eng.CurrentBranch(ctx))
	})

	t.Run("a reused name keeps the pull request", func(t *testing.T) {
		scene := testhelpers.NewScene(t, threeCommitSetup)
		eng := newEngine(t, scene)
		require.NoError(t, eng.Store().SetPR(ctx, "big", testhelpers.NewTestPRRef(7, "main")))
		_, commits, err := eng.SplitCommits(ctx, "big")
		require.NoError(t, err)

		err = eng.ApplySplit(ctx, "big", []engine.SplitPoint{{Count: 2, Name: "big"}, {Count: 3, Name: "rest"}})
		require.NoError(t, err)

		require.Equal(t, commits[1], revision(t, scene, "big"))
		graph, err := eng.Graph(ctx)
		require.NoError(t, err)
		require.Equal(t, 7, graph.Node("big").PR.Number)
		require.Nil(t, graph.Node("rest").PR)
		require.Equal(t, "big", graph.Parent("rest"))
		require.Equal(t, "rest", graph.Parent("top"))
	})

	t.Run("rejects invalid split points", func(t *testing.T) {
		scene := testhelpers.NewScene(t, threeCommitSetup)
		eng := newEngine(t, scene)

		cases := map[string][]engine.SplitPoint{
			"single point":      {{Count: 3, Name: "x"}},
			"not increasing":    {{Count: 2, Name: "x"}, {Count: 2, Name: "y"}, {Count: 3, Name: "z"}},
			"out of range":      {{Count: 1, Name: "x"}, {Count: 4, Name: "y"}},
			"short of the head": {{Count: 1, Name: "x"}, {Count: 2, Name: "y"}},
			"duplicate name":    {{Count: 1, Name: "x"}, {Count: 3, Name: "x"}},
			"existing branch":   {{Count: 1, Name: "top"}, {Count: 3, Name: "y"}},
			"missing name":      {{Count: 1, Name: ""}, {Count: 3, Name: "y"}},
		}
		for name, points := range cases {
			t.Run(name, func(t *testing.T) {
				require.Error(t, eng.ValidateSplitPoints(ctx, "big", 3, points))
			})
		}

		err := eng.ValidateSplitPoints(ctx, "big", 3, []engine.SplitPoint{{Count: 1, Name: "main"}, {Count: 3, Name: "y"}})
		require.ErrorIs(t, err, stackiterrors.ErrTrunkOperation)
		require.NoError(t, eng.ValidateSplitPoints(ctx, "big", 3, []engine.SplitPoint{{Count: 1, Name: "x"}, {Count: 3, Name: "big"}}))
	})
}
