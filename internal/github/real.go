package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	stackiterrors "stackit.dev/stackcore/internal/errors"
)

// RealClient implements Client against the GitHub REST API
type RealClient struct {
	client *github.Client
	owner  string
	repo   string
}

var _ Client = (*RealClient)(nil)

// NewRealClient creates a client for the repository remoteURL points at,
// authenticating with GITHUB_TOKEN or the gh CLI's token
func NewRealClient(ctx context.Context, remoteURL string) (*RealClient, error) {
	info, err := ParseGitHubRemoteURL(remoteURL)
	if err != nil {
		return nil, err
	}

	token, err := getGitHubToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	client, err := createGitHubClient(ctx, info.Hostname, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return NewClient(client, info.Owner, info.Repo), nil
}

// NewClient wraps an already configured go-github client
func NewClient(client *github.Client, owner, repo string) *RealClient {
	return &RealClient{client: client, owner: owner, repo: repo}
}

// OwnerRepo returns the repository owner and name
func (c *RealClient) OwnerRepo() (string, string) {
	return c.owner, c.repo
}

// GetPRStatus returns state, CI and review status of a pull request
func (c *RealClient) GetPRStatus(ctx context.Context, number int) (*PRStatus, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, forgeError("get pull request", number, err)
	}

	status := &PRStatus{
		Number:    number,
		State:     prState(pr),
		Draft:     pr.GetDraft(),
		Base:      pr.GetBase().GetRef(),
		Mergeable: pr.GetMergeableState() != "dirty" && (pr.Mergeable == nil || pr.GetMergeable()),
		CI:        CINone,
	}
	if status.State != PRStateOpen {
		return status, nil
	}

	reviews, _, err := c.client.PullRequests.ListReviews(ctx, c.owner, c.repo, number, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, forgeError("list reviews", number, err)
	}
	status.Approvals, status.ChangesRequested = summarizeReviews(reviews)

	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return status, nil
	}
	runs, _, err := c.client.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, sha, &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, forgeError("list check runs", number, err)
	}
	combined, _, err := c.client.Repositories.GetCombinedStatus(ctx, c.owner, c.repo, sha, nil)
	if err != nil {
		return nil, forgeError("get commit status", number, err)
	}
	status.CI = combineCI(runs.CheckRuns, combined)
	return status, nil
}

// MergePR merges a pull request with the given method
func (c *RealClient) MergePR(ctx context.Context, number int, method MergeMethod) error {
	result, _, err := c.client.PullRequests.Merge(ctx, c.owner, c.repo, number, "", &github.PullRequestOptions{
		MergeMethod: string(method),
	})
	if err != nil {
		return forgeError("merge", number, err)
	}
	if !result.GetMerged() {
		return forgeError("merge", number, errors.New(result.GetMessage()))
	}
	return nil
}

// UpdatePRBase retargets a pull request at a new base branch
func (c *RealClient) UpdatePRBase(ctx context.Context, number int, base string) error {
	_, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		Base: &github.PullRequestBranch{Ref: github.String(base)},
	})
	if err != nil {
		return forgeError("update base", number, err)
	}
	return nil
}

// CreateOrUpdatePR opens a pull request for head, or retargets the open one at base
func (c *RealClient) CreateOrUpdatePR(ctx context.Context, head, base, title string) (*PullRequest, error) {
	existing, err := c.FindPRForBranch(ctx, head)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.State == PRStateOpen {
		if existing.Base != base {
			if err := c.UpdatePRBase(ctx, existing.Number, base); err != nil {
				return nil, err
			}
			existing.Base = base
		}
		return existing, nil
	}

	created, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, forgeError("create pull request for "+head, 0, err)
	}
	return toPullRequest(created), nil
}

// FindPRForBranch returns the newest pull request whose head is branch, or nil
func (c *RealClient) FindPRForBranch(ctx context.Context, branch string) (*PullRequest, error) {
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", c.owner, branch),
		State: "all",
		ListOptions: github.ListOptions{
			PerPage: 1,
		},
	})
	if err != nil {
		return nil, forgeError("find pull request for "+branch, 0, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return toPullRequest(prs[0]), nil
}

func prState(pr *github.PullRequest) PRState {
	if pr.GetMerged() || pr.MergedAt != nil {
		return PRStateMerged
	}
	if strings.EqualFold(pr.GetState(), "closed") {
		return PRStateClosed
	}
	return PRStateOpen
}

func toPullRequest(pr *github.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}
	return &PullRequest{
		Number: pr.GetNumber(),
		State:  prState(pr),
		Title:  pr.GetTitle(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
		URL:    pr.GetHTMLURL(),
	}
}

// summarizeReviews counts approvals using each reviewer's latest decisive review
func summarizeReviews(reviews []*github.PullRequestReview) (int, bool) {
	latest := map[string]string{}
	for _, r := range reviews {
		switch state := r.GetState(); state {
		case "APPROVED", "CHANGES_REQUESTED", "DISMISSED":
			latest[r.GetUser().GetLogin()] = state
		}
	}
	approvals, changesRequested := 0, false
	for _, state := range latest {
		switch state {
		case "APPROVED":
			approvals++
		case "CHANGES_REQUESTED":
			changesRequested = true
		}
	}
	return approvals, changesRequested
}

func forgeError(op string, number int, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return stackiterrors.NewForgeTimeoutError(op, number, err)
	}
	return stackiterrors.NewForgeError(op, number, err)
}

// createGitHubClient creates a GitHub client configured for the given hostname.
// Supports both github.com and GitHub Enterprise instances.
func createGitHubClient(ctx context.Context, hostname, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if hostname == "github.com" {
		return client, nil
	}

	baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", hostname, err)
	}
	uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", hostname, err)
	}
	client.BaseURL = baseURL
	client.UploadURL = uploadURL
	return client, nil
}

// getGitHubToken gets a GitHub token from the environment or the gh CLI
func getGitHubToken(ctx context.Context) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return "", fmt.Errorf("GITHUB_TOKEN is not set and 'gh auth token' failed: %w", err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("empty GitHub token")
	}
	return token, nil
}
