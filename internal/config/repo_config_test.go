package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/config"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/testhelpers"
)

func TestGetRepoConfig(t *testing.T) {
	t.Run("returns defaults when config does not exist", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)

		cfg, err := config.GetRepoConfig(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, "main", cfg.Trunk)
		require.Equal(t, "origin", cfg.Remote)
		require.Equal(t, "squash", cfg.Merge.Method)
		require.Equal(t, 10*time.Minute, cfg.Merge.Timeout)
		require.Equal(t, 15*time.Second, cfg.Merge.PollInterval)
		require.True(t, cfg.Merge.DeleteBranches)
		require.False(t, config.IsInitialized(scene.Dir))
	})

	t.Run("reads nested values from the JSON file", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		content := `{"trunk":"develop","merge":{"method":"rebase","timeout":"90s","pollInterval":"2s","deleteBranches":false}}`
		require.NoError(t, os.WriteFile(config.RepoConfigPath(scene.Dir), []byte(content), 0600))

		cfg, err := config.GetRepoConfig(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, "develop", cfg.Trunk)
		require.Equal(t, "origin", cfg.Remote)
		require.Equal(t, "rebase", cfg.Merge.Method)
		require.Equal(t, 90*time.Second, cfg.Merge.Timeout)
		require.Equal(t, 2*time.Second, cfg.Merge.PollInterval)
		require.False(t, cfg.Merge.DeleteBranches)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		require.NoError(t, config.InitializeRepo(scene.Dir, "main"))
		t.Setenv("STACKIT_TRUNK", "release")
		t.Setenv("STACKIT_MERGE_METHOD", "merge")

		cfg, err := config.GetRepoConfig(scene.Dir)
		require.NoError(t, err)
		require.Equal(t, "release", cfg.Trunk)
		require.Equal(t, "merge", cfg.Merge.Method)
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		require.NoError(t, os.WriteFile(config.RepoConfigPath(scene.Dir), []byte("{"), 0600))

		_, err := config.GetRepoConfig(scene.Dir)
		require.Error(t, err)
	})
}

func TestSetTrunk(t *testing.T) {
	scene := testhelpers.NewScene(t, nil)
	require.NoError(t, config.InitializeRepo(scene.Dir, "main"))
	require.True(t, config.IsInitialized(scene.Dir))

	require.NoError(t, config.SetTrunk(scene.Dir, "trunk"))
	trunk, err := config.GetTrunk(scene.Dir)
	require.NoError(t, err)
	require.Equal(t, "trunk", trunk)

	cfg, err := config.GetRepoConfig(scene.Dir)
	require.NoError(t, err)
	require.Equal(t, "origin", cfg.Remote)
}

func TestContinuationState(t *testing.T) {
	scene := testhelpers.NewScene(t, nil)

	_, err := config.GetContinuationState(scene.Dir)
	require.ErrorIs(t, err, stackiterrors.ErrNoTransaction)

	state := &config.ContinuationState{
		OpID:                "20250101T000000Z-abcdef",
		Kind:                "restack",
		RebasedBranch:       "b",
		RebasedBranchParent: "a",
		RebasedBranchBase:   "0123",
		BranchesToRestack:   []string{"c"},
		Submit:              true,
	}
	require.NoError(t, config.PersistContinuationState(scene.Dir, state))

	loaded, err := config.GetContinuationState(scene.Dir)
	require.NoError(t, err)
	require.Equal(t, state, loaded)

	require.NoError(t, config.ClearContinuationState(scene.Dir))
	require.NoError(t, config.ClearContinuationState(scene.Dir))
	_, err = config.GetContinuationState(scene.Dir)
	require.ErrorIs(t, err, stackiterrors.ErrNoTransaction)
}
