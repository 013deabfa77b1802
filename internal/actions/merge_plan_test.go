package actions_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/actions"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/testhelpers"
)

func TestCreateMergePlan(t *testing.T) {
	stepTypes := func(plan *actions.MergePlan) []string {
		var out []string
		for _, s := range plan.Steps {
			out = append(out, string(s.StepType)+" "+s.BranchName)
		}
		return out
	}

	t.Run("bounded plan rebases leftovers after the last merge", func(t *testing.T) {
		f := newMergeFixture(t, "b")

		plan, err := actions.CreateMergePlan(f.ctx, f.forge, actions.MergeOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{
			"WAIT_CI a",
			"MERGE_PR a",
			"SYNC_TRUNK ",
			"REBASE_ONTO_TRUNK b",
			"WAIT_CI b",
			"MERGE_PR b",
			"SYNC_TRUNK ",
			"REBASE_ONTO_TRUNK c",
			"DELETE_BRANCH a",
			"DELETE_BRANCH b",
		}, stepTypes(plan))
		require.Len(t, plan.Leftovers, 1)
		require.Equal(t, 3, plan.Leftovers[0].PR)

		text := actions.FormatMergePlan(plan)
		require.Contains(t, text, "#1 a (Ready)")
		require.Contains(t, text, "Rebased onto trunk afterwards:")
		require.Contains(t, text, "4. Rebase b onto main and retarget PR #2")
	})

	t.Run("leftover descendants are restacked and nothing is deleted with no-delete", func(t *testing.T) {
		f := newMergeFixture(t, "a")

		plan, err := actions.CreateMergePlan(f.ctx, f.forge, actions.MergeOptions{NoDelete: true})
		require.NoError(t, err)
		require.Equal(t, []string{
			"WAIT_CI a",
			"MERGE_PR a",
			"SYNC_TRUNK ",
			"REBASE_ONTO_TRUNK b",
			"RESTACK_UPSTACK b",
		}, stepTypes(plan))
		require.Equal(t, []string{"c"}, plan.Leftovers[0].Descendants)
	})

	t.Run("a pull request is required for every branch in scope", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main"))
		ctx := testhelpers.NewTestContext(t, scene, testhelpers.NewFakeForge())

		_, err := actions.CreateMergePlan(ctx, ctx.Forge, actions.MergeOptions{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "run 'stackit submit' first")
	})

	t.Run("closed pull requests stop planning", func(t *testing.T) {
		f := newMergeFixture(t, "a")
		closed := f.forge.AddPR(1, "a", "main")
		closed.State = github.PRStateClosed

		_, err := actions.CreateMergePlan(f.ctx, f.forge, actions.MergeOptions{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "is closed")
		require.False(t, slices.Contains(f.forge.Calls(), "merge #1 squash"))
	})

	t.Run("childless merged branches from an earlier run are deleted too", func(t *testing.T) {
		f := newMergeFixture(t, "a")
		require.NoError(t, f.scene.Repo.CreateStackedBranch("old", "main"))
		require.NoError(t, f.scene.Repo.CheckoutBranch("a"))
		require.NoError(t, f.ctx.Engine.Store().SetPR(f.ctx, "old", testhelpers.NewTestPRRefWithState(9, "main", "MERGED")))

		plan, err := actions.CreateMergePlan(f.ctx, f.forge, actions.MergeOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"old"}, plan.Stale)
		require.Contains(t, stepTypes(plan), "DELETE_BRANCH old")

		plan, err = actions.CreateMergePlan(f.ctx, f.forge, actions.MergeOptions{NoDelete: true})
		require.NoError(t, err)
		require.Empty(t, plan.Stale)
	})
}
