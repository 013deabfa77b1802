package engine

import (
	"stackit.dev/stackcore/internal/git"
)

// PRRef is the pull request attached to a branch
type PRRef struct {
	Number   int
	State    string // OPEN, MERGED, CLOSED
	Provider string
	Base     string
}

// Node is the persisted stack record of a tracked branch
type Node struct {
	Name           string
	Parent         string
	ParentRevision string
	PR             *PRRef
}

// Scope selects the branches a multi-branch operation visits
type Scope string

const (
	// ScopeOnly is the branch alone
	ScopeOnly Scope = "only"
	// ScopeUpstack is the branch and its descendants
	ScopeUpstack Scope = "upstack"
	// ScopeDownstack is the branch's ancestors and the branch
	ScopeDownstack Scope = "downstack"
	// ScopeStack is ancestors, the branch and its descendants
	ScopeStack Scope = "stack"
	// ScopeAll is every tracked branch in listing order
	ScopeAll Scope = "all"
)

// RestackResult represents the result of restacking a branch
type RestackResult int

const (
	// RestackDone indicates the restack was successful
	RestackDone RestackResult = iota
	// RestackUnneeded indicates the branch was already on its parent's head
	RestackUnneeded
	// RestackConflict indicates a conflict occurred during restack
	RestackConflict
)

func (r RestackResult) String() string {
	switch r {
	case RestackDone:
		return "restacked"
	case RestackUnneeded:
		return "up to date"
	default:
		return "conflict"
	}
}

// RestackOutcome describes one single-branch restack
type RestackOutcome struct {
	Result RestackResult
	Branch string
	// Parent and ParentHead are what the branch is stamped with once the rebase completes
	Parent     string
	ParentHead string
	// Reparented is set when a missing parent was replaced by trunk
	Reparented bool
	OldParent  string
}

// BranchStatus is one row of the status listing
type BranchStatus struct {
	Name         string
	Parent       string
	Depth        int
	IsTrunk      bool
	IsCurrent    bool
	NeedsRestack bool
	Orphaned     bool
	AheadBehind  git.AheadBehind
	PR           *PRRef
}
