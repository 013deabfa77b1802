// Package github provides the forge client stackit uses to inspect, retarget
// and merge pull requests.
package github

import (
	"context"
	"fmt"
	"strings"
)

// PRState is the lifecycle state of a pull request
type PRState string

// Pull request states
const (
	PRStateOpen   PRState = "OPEN"
	PRStateMerged PRState = "MERGED"
	PRStateClosed PRState = "CLOSED"
)

// CIStatus is the combined state of every check on a pull request's head commit
type CIStatus string

// CI states
const (
	CISuccess CIStatus = "success"
	CIPending CIStatus = "pending"
	CIFailure CIStatus = "failure"
	CINone    CIStatus = "none"
)

// MergeMethod selects how the forge merges a pull request
type MergeMethod string

// Merge methods
const (
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodRebase MergeMethod = "rebase"
)

// ParseMergeMethod validates a merge method name
func ParseMergeMethod(s string) (MergeMethod, error) {
	switch m := MergeMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MergeMethodSquash, MergeMethodMerge, MergeMethodRebase:
		return m, nil
	default:
		return "", fmt.Errorf("unknown merge method %q (expected squash, merge or rebase)", s)
	}
}

// PullRequest is the forge's view of a pull request, decoupled from go-github
type PullRequest struct {
	Number int
	State  PRState
	Title  string
	Head   string
	Base   string
	URL    string
}

// PRStatus is what the merge cascade needs to decide whether a pull request can be merged
type PRStatus struct {
	Number           int
	State            PRState
	CI               CIStatus
	Approvals        int
	ChangesRequested bool
	Mergeable        bool
	Draft            bool
	Base             string
}

// IsReady reports whether the pull request can be merged now
func (s *PRStatus) IsReady() bool {
	return s.State == PRStateOpen &&
		!s.Draft &&
		!s.ChangesRequested &&
		s.Mergeable &&
		(s.CI == CISuccess || s.CI == CINone)
}

// StatusText is a one or two word readiness summary
func (s *PRStatus) StatusText() string {
	switch {
	case s.State == PRStateMerged:
		return "Merged"
	case s.State == PRStateClosed:
		return "Closed"
	case s.Draft:
		return "Draft"
	case s.CI == CIFailure:
		return "CI failed"
	case s.ChangesRequested:
		return "Changes requested"
	case !s.Mergeable:
		return "Has conflicts"
	case s.CI == CIPending:
		return "Waiting"
	default:
		return "Ready"
	}
}

// Client is the forge API stackit depends on
type Client interface {
	// GetPRStatus returns state, CI and review status of a pull request
	GetPRStatus(ctx context.Context, number int) (*PRStatus, error)

	// MergePR merges a pull request with the given method
	MergePR(ctx context.Context, number int, method MergeMethod) error

	// UpdatePRBase retargets a pull request at a new base branch
	UpdatePRBase(ctx context.Context, number int, base string) error

	// CreateOrUpdatePR opens a pull request for head, or retargets the open one at base
	CreateOrUpdatePR(ctx context.Context, head, base, title string) (*PullRequest, error)

	// FindPRForBranch returns the newest pull request whose head is branch, or nil
	FindPRForBranch(ctx context.Context, branch string) (*PullRequest, error)
}
