package actions

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/runtime"
)

// MergeStepType represents the type of step in a merge plan
type MergeStepType string

const (
	// StepWaitCI waits for the pull request's checks to pass
	StepWaitCI MergeStepType = "WAIT_CI"
	// StepMergePR merges the pull request on the forge
	StepMergePR MergeStepType = "MERGE_PR"
	// StepSyncTrunk fetches trunk and fast-forwards the local copy
	StepSyncTrunk MergeStepType = "SYNC_TRUNK"
	// StepRebaseOntoTrunk rebases a branch whose parent merged onto trunk,
	// retargets its pull request and force-pushes it
	StepRebaseOntoTrunk MergeStepType = "REBASE_ONTO_TRUNK"
	// StepRestackUpstack restacks a branch's descendants locally
	StepRestackUpstack MergeStepType = "RESTACK_UPSTACK"
	// StepDeleteBranch deletes a merged branch locally and on the remote
	StepDeleteBranch MergeStepType = "DELETE_BRANCH"
)

// MergeEntry is one branch in the merge scope, bottom to top
type MergeEntry struct {
	Branch string
	Parent string
	PR     int
	URL    string
	// Status is the readiness text at planning time
	Status string
	// Merged is set when the pull request was merged by an earlier run
	Merged bool
}

// Leftover is a branch outside the scope whose parent gets merged
type Leftover struct {
	Branch      string
	PR          int
	Descendants []string
}

// MergePlanStep represents a single step in the merge plan
type MergePlanStep struct {
	StepType    MergeStepType
	BranchName  string
	PRNumber    int
	Description string
	WaitTimeout time.Duration
}

// MergePlan is the complete plan for a merge cascade
type MergePlan struct {
	CurrentBranch string
	Trunk         string
	Method        github.MergeMethod
	Entries       []MergeEntry
	Leftovers     []Leftover
	// Stale are branches merged by an earlier run that are no longer in any stack
	Stale []string
	Steps []MergePlanStep
}

// ToMerge returns the entries still to be merged
func (p *MergePlan) ToMerge() []MergeEntry {
	var out []MergeEntry
	for _, e := range p.Entries {
		if !e.Merged {
			out = append(out, e)
		}
	}
	return out
}

// Branches returns every branch the plan may mutate
func (p *MergePlan) Branches() []string {
	var out []string
	for _, e := range p.Entries {
		out = append(out, e.Branch)
	}
	for _, l := range p.Leftovers {
		out = append(out, l.Branch)
		out = append(out, l.Descendants...)
	}
	return append(out, p.Stale...)
}

// IsEmpty reports whether the plan has nothing to do
func (p *MergePlan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// CreateMergePlan resolves the merge scope and the pull request of every
// branch in it, then lays out the steps bottom to top
func CreateMergePlan(ctx *runtime.Context, forge github.Client, opts MergeOptions) (*MergePlan, error) {
	eng := ctx.Engine
	splog := ctx.Splog

	current := eng.CurrentBranch(ctx)
	if current == "" {
		return nil, stackiterrors.ErrNotOnBranch
	}
	if eng.IsTrunk(current) {
		return nil, fmt.Errorf("check out a branch of the stack to merge: %w", stackiterrors.ErrTrunkOperation)
	}
	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if !graph.Has(current) {
		return nil, fmt.Errorf("%s: %w", current, stackiterrors.ErrNotTracked)
	}

	var scope []string
	if opts.All {
		scope = graph.Scoped(graph.StackRoot(current), engine.ScopeUpstack)
	} else {
		scope = graph.Scoped(current, engine.ScopeDownstack)
	}

	plan := &MergePlan{
		CurrentBranch: current,
		Trunk:         eng.Trunk(),
		Method:        opts.Method,
	}
	for _, branch := range scope {
		entry, err := resolveMergeEntry(ctx, forge, graph, branch)
		if err != nil {
			return nil, err
		}
		if entry.Merged {
			splog.Debug("PR #%d (%s) is already merged; skipping", entry.PR, branch)
		}
		plan.Entries = append(plan.Entries, *entry)
	}

	for _, branch := range scope {
		for _, child := range graph.Children(branch) {
			if slices.Contains(scope, child) {
				continue
			}
			leftover := Leftover{Branch: child, Descendants: graph.Descendants(child)}
			leftover.PR = knownPR(ctx, forge, child)
			plan.Leftovers = append(plan.Leftovers, leftover)
		}
	}

	if !opts.NoDelete {
		plan.Stale = staleMergedBranches(ctx, graph, plan.Branches())
	}
	plan.Steps = buildMergeSteps(plan, opts)
	return plan, nil
}

// resolveMergeEntry finds the pull request of branch from its metadata or
// the forge and reads its live state. A closed pull request stops planning.
func resolveMergeEntry(ctx *runtime.Context, forge github.Client, graph *engine.Graph, branch string) (*MergeEntry, error) {
	entry := &MergeEntry{Branch: branch, Parent: graph.Parent(branch)}
	if node := graph.Node(branch); node != nil && node.PR != nil && node.PR.Number > 0 {
		entry.PR = node.PR.Number
	} else {
		pr, err := forge.FindPRForBranch(ctx, branch)
		if err != nil {
			return nil, err
		}
		if pr == nil {
			return nil, fmt.Errorf("%s has no pull request; run 'stackit submit' first", branch)
		}
		entry.PR = pr.Number
		entry.URL = pr.URL
	}

	status, err := forge.GetPRStatus(ctx, entry.PR)
	if err != nil {
		return nil, err
	}
	entry.Status = status.StatusText()
	switch status.State {
	case github.PRStateMerged:
		entry.Merged = true
	case github.PRStateClosed:
		return nil, fmt.Errorf("PR #%d (%s) is closed; reopen it or remove %s from the stack", entry.PR, branch, branch)
	}
	return entry, nil
}

// knownPR is the pull request number of a branch outside the scope, or 0
func knownPR(ctx *runtime.Context, forge github.Client, branch string) int {
	node, err := ctx.Engine.Store().Load(ctx, branch)
	if err == nil && node.PR != nil && node.PR.Number > 0 {
		return node.PR.Number
	}
	pr, err := forge.FindPRForBranch(ctx, branch)
	if err != nil || pr == nil || pr.State != github.PRStateOpen {
		return 0
	}
	return pr.Number
}

// staleMergedBranches are childless tracked branches recorded as merged,
// left behind when an earlier merge halted
func staleMergedBranches(ctx *runtime.Context, graph *engine.Graph, exclude []string) []string {
	var stale []string
	for _, branch := range graph.Branches() {
		if slices.Contains(exclude, branch) || len(graph.Children(branch)) > 0 {
			continue
		}
		node := graph.Node(branch)
		if node != nil && node.PR != nil && node.PR.State == string(github.PRStateMerged) {
			stale = append(stale, branch)
		}
	}
	ctx.Splog.Debug("Stale merged branches: %v", stale)
	return stale
}

func buildMergeSteps(plan *MergePlan, opts MergeOptions) []MergePlanStep {
	var steps []MergePlanStep
	lastIs := func(t MergeStepType) bool {
		return len(steps) > 0 && steps[len(steps)-1].StepType == t
	}
	syncTrunk := func() {
		if !lastIs(StepSyncTrunk) {
			steps = append(steps, MergePlanStep{
				StepType:    StepSyncTrunk,
				Description: fmt.Sprintf("Pull %s to get merged changes", plan.Trunk),
			})
		}
	}

	for _, entry := range plan.ToMerge() {
		if entry.Parent != plan.Trunk {
			syncTrunk()
			steps = append(steps, MergePlanStep{
				StepType:    StepRebaseOntoTrunk,
				BranchName:  entry.Branch,
				PRNumber:    entry.PR,
				Description: fmt.Sprintf("Rebase %s onto %s and retarget PR #%d", entry.Branch, plan.Trunk, entry.PR),
			})
		}
		steps = append(steps,
			MergePlanStep{
				StepType:    StepWaitCI,
				BranchName:  entry.Branch,
				PRNumber:    entry.PR,
				Description: fmt.Sprintf("Wait for CI on PR #%d (%s)", entry.PR, entry.Branch),
				WaitTimeout: opts.Timeout,
			},
			MergePlanStep{
				StepType:    StepMergePR,
				BranchName:  entry.Branch,
				PRNumber:    entry.PR,
				Description: fmt.Sprintf("Merge PR #%d (%s)", entry.PR, entry.Branch),
			},
		)
		syncTrunk()
	}

	for _, leftover := range plan.Leftovers {
		syncTrunk()
		desc := fmt.Sprintf("Rebase %s onto %s", leftover.Branch, plan.Trunk)
		if leftover.PR > 0 {
			desc += fmt.Sprintf(" and retarget PR #%d", leftover.PR)
		}
		steps = append(steps, MergePlanStep{
			StepType:    StepRebaseOntoTrunk,
			BranchName:  leftover.Branch,
			PRNumber:    leftover.PR,
			Description: desc,
		})
		if len(leftover.Descendants) > 0 {
			steps = append(steps, MergePlanStep{
				StepType:    StepRestackUpstack,
				BranchName:  leftover.Branch,
				Description: fmt.Sprintf("Restack branches above %s", leftover.Branch),
			})
		}
	}

	if !opts.NoDelete {
		for _, entry := range plan.Entries {
			steps = append(steps, deleteStep(entry.Branch))
		}
		for _, branch := range plan.Stale {
			steps = append(steps, deleteStep(branch))
		}
	}
	return steps
}

func deleteStep(branch string) MergePlanStep {
	return MergePlanStep{
		StepType:    StepDeleteBranch,
		BranchName:  branch,
		Description: fmt.Sprintf("Delete merged branch %s", branch),
	}
}

// FormatMergePlan renders the plan for review before it runs
func FormatMergePlan(plan *MergePlan) string {
	var result strings.Builder

	fmt.Fprintf(&result, "Merging into %s with method %s from %s\n\n", plan.Trunk, plan.Method, plan.CurrentBranch)
	result.WriteString("Pull requests:\n")
	for _, entry := range plan.Entries {
		status := entry.Status
		if entry.Merged {
			status = "already merged, skipping"
		}
		fmt.Fprintf(&result, "  #%d %s (%s)\n", entry.PR, entry.Branch, status)
	}
	if len(plan.Leftovers) > 0 {
		result.WriteString("\nRebased onto trunk afterwards:\n")
		for _, leftover := range plan.Leftovers {
			fmt.Fprintf(&result, "  %s\n", leftover.Branch)
		}
	}

	result.WriteString("\nSteps:\n")
	for i, step := range plan.Steps {
		fmt.Fprintf(&result, "  %d. %s\n", i+1, step.Description)
	}
	return result.String()
}
