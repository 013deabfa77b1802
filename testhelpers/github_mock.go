package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockGitHubServerConfig holds the state served by a mock GitHub API
type MockGitHubServerConfig struct {
	mu sync.Mutex

	// PRs maps PR numbers to pull requests
	PRs map[int]*github.PullRequest
	// Reviews maps PR numbers to their reviews, oldest first
	Reviews map[int][]*github.PullRequestReview
	// CheckRuns maps head SHAs to check runs
	CheckRuns map[string][]*github.CheckRun
	// Statuses maps head SHAs to legacy commit statuses
	Statuses map[string][]*github.RepoStatus
	// MergeErrors maps PR numbers to a message returned instead of merging
	MergeErrors map[int]string
	// Merged records merge requests as number -> method
	Merged map[int]string

	Owner string
	Repo  string
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		PRs:         map[int]*github.PullRequest{},
		Reviews:     map[int][]*github.PullRequestReview{},
		CheckRuns:   map[string][]*github.CheckRun{},
		Statuses:    map[string][]*github.RepoStatus{},
		MergeErrors: map[int]string{},
		Merged:      map[int]string{},
		Owner:       "owner",
		Repo:        "repo",
	}
}

// AddPR registers a pull request
func (c *MockGitHubServerConfig) AddPR(pr *github.PullRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PRs[pr.GetNumber()] = pr
}

// PR returns a registered pull request
func (c *MockGitHubServerConfig) PR(number int) *github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.PRs[number]
}

// NewMockGitHubServer creates an httptest server that mocks the GitHub endpoints stackit calls
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockGitHubServerConfig()
	}
	base := "/repos/" + config.Owner + "/" + config.Repo

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/pulls", config.listPRs)
	mux.HandleFunc("POST "+base+"/pulls", config.createPR)
	mux.HandleFunc("GET "+base+"/pulls/{number}", config.withPR(func(w http.ResponseWriter, _ *http.Request, pr *github.PullRequest) {
		writeJSON(w, http.StatusOK, pr)
	}))
	mux.HandleFunc("PATCH "+base+"/pulls/{number}", config.withPR(config.editPR))
	mux.HandleFunc("PUT "+base+"/pulls/{number}/merge", config.withPR(config.mergePR))
	mux.HandleFunc("GET "+base+"/pulls/{number}/reviews", config.withPR(func(w http.ResponseWriter, _ *http.Request, pr *github.PullRequest) {
		reviews := config.Reviews[pr.GetNumber()]
		if reviews == nil {
			reviews = []*github.PullRequestReview{}
		}
		writeJSON(w, http.StatusOK, reviews)
	}))
	mux.HandleFunc("GET "+base+"/commits/{sha}/check-runs", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		runs := config.CheckRuns[r.PathValue("sha")]
		writeJSON(w, http.StatusOK, &github.ListCheckRunsResults{Total: github.Int(len(runs)), CheckRuns: runs})
	})
	mux.HandleFunc("GET "+base+"/commits/{sha}/status", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		statuses := config.Statuses[r.PathValue("sha")]
		writeJSON(w, http.StatusOK, &github.CombinedStatus{TotalCount: github.Int(len(statuses)), Statuses: statuses})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// NewMockGitHubClient creates a go-github client talking to a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) (*github.Client, string, string) {
	t.Helper()
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL
	return client, config.Owner, config.Repo
}

func (c *MockGitHubServerConfig) withPR(handle func(http.ResponseWriter, *http.Request, *github.PullRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(r.PathValue("number"))
		if err != nil {
			http.Error(w, "invalid PR number", http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		pr, ok := c.PRs[number]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		handle(w, r, pr)
	}
}

func (c *MockGitHubServerConfig) listPRs(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	head := strings.TrimPrefix(r.URL.Query().Get("head"), c.Owner+":")

	var newest *github.PullRequest
	for _, pr := range c.PRs {
		if pr.GetHead().GetRef() == head && (newest == nil || pr.GetNumber() > newest.GetNumber()) {
			newest = pr
		}
	}
	if newest == nil {
		writeJSON(w, http.StatusOK, []*github.PullRequest{})
		return
	}
	writeJSON(w, http.StatusOK, []*github.PullRequest{newest})
}

func (c *MockGitHubServerConfig) createPR(w http.ResponseWriter, r *http.Request) {
	var req github.NewPullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	number := len(c.PRs) + 1
	for c.PRs[number] != nil {
		number++
	}
	pr := NewSamplePullRequest(SamplePRData{
		Number:  number,
		Title:   req.GetTitle(),
		Head:    req.GetHead(),
		Base:    req.GetBase(),
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/pull/%d", c.Owner, c.Repo, number),
		State:   "open",
	})
	c.PRs[number] = pr
	writeJSON(w, http.StatusCreated, pr)
}

func (c *MockGitHubServerConfig) editPR(w http.ResponseWriter, r *http.Request, pr *github.PullRequest) {
	var update struct {
		Title *string `json:"title,omitempty"`
		Base  *string `json:"base,omitempty"`
		State *string `json:"state,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if update.Title != nil {
		pr.Title = update.Title
	}
	if update.Base != nil {
		pr.Base = &github.PullRequestBranch{Ref: update.Base}
	}
	if update.State != nil {
		pr.State = update.State
	}
	writeJSON(w, http.StatusOK, pr)
}

func (c *MockGitHubServerConfig) mergePR(w http.ResponseWriter, r *http.Request, pr *github.PullRequest) {
	if msg, ok := c.MergeErrors[pr.GetNumber()]; ok {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": msg})
		return
	}
	var req struct {
		MergeMethod string `json:"merge_method"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	pr.Merged = github.Bool(true)
	pr.State = github.String("closed")
	c.Merged[pr.GetNumber()] = req.MergeMethod
	writeJSON(w, http.StatusOK, &github.PullRequestMergeResult{
		Merged:  github.Bool(true),
		Message: github.String("Pull Request successfully merged"),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
