package github_test

import (
	"context"
	"testing"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/require"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/testhelpers"
)

func newClient(t *testing.T, config *testhelpers.MockGitHubServerConfig) *github.RealClient {
	t.Helper()
	client, owner, repo := testhelpers.NewMockGitHubClient(t, config)
	return github.NewClient(client, owner, repo)
}

func TestGetPRStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("open PR with green checks and an approval is ready", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.AddPR(testhelpers.NewSamplePullRequest(testhelpers.DefaultPRData()))
		config.CheckRuns["abc123"] = []*gogithub.CheckRun{
			testhelpers.NewCheckRun("build", "completed", "success"),
			testhelpers.NewCheckRun("lint", "completed", "skipped"),
		}
		config.Reviews[123] = []*gogithub.PullRequestReview{testhelpers.NewReview("alice", "APPROVED")}

		status, err := newClient(t, config).GetPRStatus(ctx, 123)
		require.NoError(t, err)
		require.Equal(t, github.PRStateOpen, status.State)
		require.Equal(t, github.CISuccess, status.CI)
		require.Equal(t, 1, status.Approvals)
		require.Equal(t, "main", status.Base)
		require.True(t, status.IsReady())
		require.Equal(t, "Ready", status.StatusText())
	})

	t.Run("running checks are pending", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.AddPR(testhelpers.NewSamplePullRequest(testhelpers.DefaultPRData()))
		config.CheckRuns["abc123"] = []*gogithub.CheckRun{
			testhelpers.NewCheckRun("build", "completed", "success"),
			testhelpers.NewCheckRun("test", "in_progress", ""),
		}

		status, err := newClient(t, config).GetPRStatus(ctx, 123)
		require.NoError(t, err)
		require.Equal(t, github.CIPending, status.CI)
		require.False(t, status.IsReady())
		require.Equal(t, "Waiting", status.StatusText())
	})

	t.Run("a failed commit status fails CI", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.AddPR(testhelpers.NewSamplePullRequest(testhelpers.DefaultPRData()))
		config.Statuses["abc123"] = []*gogithub.RepoStatus{{State: gogithub.String("error")}}

		status, err := newClient(t, config).GetPRStatus(ctx, 123)
		require.NoError(t, err)
		require.Equal(t, github.CIFailure, status.CI)
		require.Equal(t, "CI failed", status.StatusText())
	})

	t.Run("latest review per reviewer wins", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.AddPR(testhelpers.NewSamplePullRequest(testhelpers.DefaultPRData()))
		config.Reviews[123] = []*gogithub.PullRequestReview{
			testhelpers.NewReview("alice", "CHANGES_REQUESTED"),
			testhelpers.NewReview("bob", "CHANGES_REQUESTED"),
			testhelpers.NewReview("alice", "APPROVED"),
			testhelpers.NewReview("alice", "COMMENTED"),
		}

		status, err := newClient(t, config).GetPRStatus(ctx, 123)
		require.NoError(t, err)
		require.Equal(t, 1, status.Approvals)
		require.True(t, status.ChangesRequested)
		require.Equal(t, github.CINone, status.CI)
		require.Equal(t, "Changes requested", status.StatusText())
	})

	t.Run("merged and closed PRs", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		merged := testhelpers.MergedPRData()
		merged.Number = 1
		closed := testhelpers.ClosedPRData()
		closed.Number = 2
		config.AddPR(testhelpers.NewSamplePullRequest(merged))
		config.AddPR(testhelpers.NewSamplePullRequest(closed))
		client := newClient(t, config)

		status, err := client.GetPRStatus(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, github.PRStateMerged, status.State)

		status, err = client.GetPRStatus(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, github.PRStateClosed, status.State)
		require.Equal(t, "Closed", status.StatusText())
	})

	t.Run("draft and conflicted PRs are not ready", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		draft := testhelpers.DraftPRData()
		draft.Number = 1
		dirty := testhelpers.DefaultPRData()
		dirty.Number = 2
		dirty.MergeableState = "dirty"
		config.AddPR(testhelpers.NewSamplePullRequest(draft))
		config.AddPR(testhelpers.NewSamplePullRequest(dirty))
		client := newClient(t, config)

		status, err := client.GetPRStatus(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, "Draft", status.StatusText())

		status, err = client.GetPRStatus(ctx, 2)
		require.NoError(t, err)
		require.False(t, status.Mergeable)
		require.Equal(t, "Has conflicts", status.StatusText())
	})

	t.Run("unknown PR is a forge error", func(t *testing.T) {
		_, err := newClient(t, testhelpers.NewMockGitHubServerConfig()).GetPRStatus(ctx, 99)
		require.ErrorIs(t, err, stackiterrors.ErrForge)
		require.NotErrorIs(t, err, stackiterrors.ErrTimeout)
	})
}

func TestMergeAndRetarget(t *testing.T) {
	ctx := context.Background()
	config := testhelpers.NewMockGitHubServerConfig()
	data := testhelpers.DefaultPRData()
	data.Base = "feature-parent"
	config.AddPR(testhelpers.NewSamplePullRequest(data))
	client := newClient(t, config)

	require.NoError(t, client.UpdatePRBase(ctx, 123, "main"))
	require.Equal(t, "main", config.PR(123).GetBase().GetRef())

	require.NoError(t, client.MergePR(ctx, 123, github.MergeMethodSquash))
	require.Equal(t, "squash", config.Merged[123])

	status, err := client.GetPRStatus(ctx, 123)
	require.NoError(t, err)
	require.Equal(t, github.PRStateMerged, status.State)

	t.Run("rejected merge is a forge error", func(t *testing.T) {
		config := testhelpers.NewMockGitHubServerConfig()
		config.AddPR(testhelpers.NewSamplePullRequest(testhelpers.DefaultPRData()))
		config.MergeErrors[123] = "Required status check \"build\" is failing"

		err := newClient(t, config).MergePR(ctx, 123, github.MergeMethodMerge)
		require.ErrorIs(t, err, stackiterrors.ErrForge)
		require.Contains(t, err.Error(), "PR #123")
	})
}

func TestCreateOrUpdatePR(t *testing.T) {
	ctx := context.Background()
	config := testhelpers.NewMockGitHubServerConfig()
	client := newClient(t, config)

	found, err := client.FindPRForBranch(ctx, "feature")
	require.NoError(t, err)
	require.Nil(t, found)

	created, err := client.CreateOrUpdatePR(ctx, "feature", "main", "Add feature")
	require.NoError(t, err)
	require.Equal(t, 1, created.Number)
	require.Equal(t, "feature", created.Head)
	require.Equal(t, "main", created.Base)
	require.Equal(t, github.PRStateOpen, created.State)

	updated, err := client.CreateOrUpdatePR(ctx, "feature", "parent", "Add feature")
	require.NoError(t, err)
	require.Equal(t, 1, updated.Number)
	require.Equal(t, "parent", updated.Base)
	require.Equal(t, "parent", config.PR(1).GetBase().GetRef())

	found, err = client.FindPRForBranch(ctx, "feature")
	require.NoError(t, err)
	require.Equal(t, "parent", found.Base)
}

func TestParseMergeMethod(t *testing.T) {
	method, err := github.ParseMergeMethod(" Rebase ")
	require.NoError(t, err)
	require.Equal(t, github.MergeMethodRebase, method)

	_, err = github.ParseMergeMethod("octopus")
	require.Error(t, err)
}

func TestCheckState(t *testing.T) {
	cases := map[string]github.CIStatus{
		"success":         github.CISuccess,
		"neutral":         github.CISuccess,
		"skipped":         github.CISuccess,
		"queued":          github.CIPending,
		"in_progress":     github.CIPending,
		"pending":         github.CIPending,
		"failure":         github.CIFailure,
		"cancelled":       github.CIFailure,
		"timed_out":       github.CIFailure,
		"action_required": github.CIFailure,
		"ERROR":           github.CIFailure,
		"":                github.CINone,
	}
	for state, want := range cases {
		t.Run(state, func(t *testing.T) {
			require.Equal(t, want, github.CheckState(state))
		})
	}
}

func TestParseGitHubRemoteURL(t *testing.T) {
	cases := []struct {
		url  string
		want github.RepoInfo
	}{
		{"https://github.com/owner/repo.git", github.RepoInfo{Hostname: "github.com", Owner: "owner", Repo: "repo"}},
		{"git@github.com:owner/repo.git", github.RepoInfo{Hostname: "github.com", Owner: "owner", Repo: "repo"}},
		{"ssh://git@github.company.com/team/project", github.RepoInfo{Hostname: "github.company.com", Owner: "team", Repo: "project"}},
		{"https://token@github.company.com/team/project/", github.RepoInfo{Hostname: "github.company.com", Owner: "team", Repo: "project"}},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			info, err := github.ParseGitHubRemoteURL(tc.url)
			require.NoError(t, err)
			require.Equal(t, tc.want, *info)
		})
	}

	_, err := github.ParseGitHubRemoteURL("/srv/git/repo")
	require.Error(t, err)
}
