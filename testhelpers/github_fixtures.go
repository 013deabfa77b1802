package testhelpers

import (
	"github.com/google/go-github/v62/github"
)

// SamplePRData provides common PR data for testing
type SamplePRData struct {
	Number  int
	Title   string
	Head    string
	HeadSHA string
	Base    string
	HTMLURL string
	Draft   bool
	State   string
	Merged  bool
	// MergeableState is GitHub's mergeable_state; "dirty" means conflicts
	MergeableState string
}

// NewSamplePullRequest creates a github.PullRequest from sample data
func NewSamplePullRequest(data SamplePRData) *github.PullRequest {
	pr := &github.PullRequest{
		Number:  github.Int(data.Number),
		Title:   github.String(data.Title),
		Head:    &github.PullRequestBranch{Ref: github.String(data.Head)},
		Base:    &github.PullRequestBranch{Ref: github.String(data.Base)},
		HTMLURL: github.String(data.HTMLURL),
		Draft:   github.Bool(data.Draft),
		State:   github.String(data.State),
		Merged:  github.Bool(data.Merged),
	}
	if data.HeadSHA != "" {
		pr.Head.SHA = github.String(data.HeadSHA)
	}
	if data.MergeableState != "" {
		pr.MergeableState = github.String(data.MergeableState)
		pr.Mergeable = github.Bool(data.MergeableState != "dirty")
	}
	return pr
}

// DefaultPRData returns a default PR data structure for testing
func DefaultPRData() SamplePRData {
	return SamplePRData{
		Number:  123,
		Title:   "Test Pull Request",
		Head:    "feature-branch",
		HeadSHA: "abc123",
		Base:    "main",
		HTMLURL: "https://github.com/owner/repo/pull/123",
		State:   "open",
	}
}

// DraftPRData returns PR data for a draft PR
func DraftPRData() SamplePRData {
	data := DefaultPRData()
	data.Draft = true
	data.Title = "Draft: Test Pull Request"
	return data
}

// MergedPRData returns PR data for a merged PR
func MergedPRData() SamplePRData {
	data := DefaultPRData()
	data.State = "closed"
	data.Merged = true
	return data
}

// ClosedPRData returns PR data for a PR closed without merging
func ClosedPRData() SamplePRData {
	data := DefaultPRData()
	data.State = "closed"
	return data
}

// NewCheckRun creates a check run; conclusion only matters once status is "completed"
func NewCheckRun(name, status, conclusion string) *github.CheckRun {
	run := &github.CheckRun{Name: github.String(name), Status: github.String(status)}
	if conclusion != "" {
		run.Conclusion = github.String(conclusion)
	}
	return run
}

// NewReview creates a pull request review by login in state (APPROVED, CHANGES_REQUESTED, ...)
func NewReview(login, state string) *github.PullRequestReview {
	return &github.PullRequestReview{
		User:  &github.User{Login: github.String(login)},
		State: github.String(state),
	}
}
