package actions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// SplitOptions contains options for the split command
type SplitOptions struct {
	// Branch defaults to the current branch
	Branch string
	// Points end each new branch; a point without a name is prompted for
	Points []engine.SplitPoint
}

// SplitResult describes a completed split
type SplitResult struct {
	State    State
	Branches []string
	Receipt  *ops.Receipt
}

// ParseSplitPoint parses "n:name" or a bare "n"
func ParseSplitPoint(s string) (engine.SplitPoint, error) {
	countText, name, _ := strings.Cut(s, ":")
	count, err := strconv.Atoi(strings.TrimSpace(countText))
	if err != nil {
		return engine.SplitPoint{}, fmt.Errorf("invalid split point %q: expected <commits>:<branch>", s)
	}
	return engine.SplitPoint{Count: count, Name: strings.TrimSpace(name)}, nil
}

// SplitAction splits a branch's commits into a chain of branches inside one
// split transaction. A failure part way rolls everything back to the single
// original branch.
func SplitAction(ctx *runtime.Context, opts SplitOptions) (*SplitResult, error) {
	eng := ctx.Engine
	splog := ctx.Splog

	if err := ensureNoRebase(ctx); err != nil {
		return nil, err
	}
	branch := opts.Branch
	if branch == "" {
		branch = eng.CurrentBranch(ctx)
	}
	if branch == "" {
		return nil, stackiterrors.ErrNotOnBranch
	}
	if eng.IsTrunk(branch) {
		return nil, fmt.Errorf("cannot split %s: %w", branch, stackiterrors.ErrTrunkOperation)
	}
	if !eng.Store().IsTracked(ctx, branch) {
		return nil, fmt.Errorf("cannot split %s: %w", branch, stackiterrors.ErrNotTracked)
	}
	dirty, err := eng.Repo().IsDirty(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, errors.New("the working tree has uncommitted changes; commit or stash them before splitting")
	}

	_, commits, err := eng.SplitCommits(ctx, branch)
	if err != nil {
		return nil, err
	}
	if len(commits) < 2 {
		return nil, fmt.Errorf("%s has %d commit(s); a split needs at least 2", branch, len(commits))
	}
	points, err := promptSplitNames(ctx, branch, opts.Points)
	if err != nil {
		return nil, err
	}
	if err := eng.ValidateSplitPoints(ctx, branch, len(commits), points); err != nil {
		return nil, err
	}

	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	touched := []string{branch}
	touched = append(touched, graph.Children(branch)...)
	names := make([]string, 0, len(points))
	for _, p := range points {
		names = append(names, p.Name)
		if p.Name != branch {
			touched = append(touched, p.Name)
		}
	}

	tx, err := ctx.Ops.Begin(ctx, ops.KindSplit, eng.Trunk(), touched...)
	if err != nil {
		return nil, err
	}
	machine := NewMachine()
	mustTransition(machine.Run("split"))
	result := &SplitResult{}

	if err := eng.ApplySplit(ctx, branch, points); err != nil {
		mustTransition(machine.Abort(err.Error()))
		result.State = machine.State()
		return result, tx.Abort(ctx, fmt.Errorf("failed to split %s: %w", branch, err))
	}
	last := names[len(names)-1]
	result.Receipt, err = finish(ctx, tx, last, fmt.Sprintf("split %s into %s", branch, strings.Join(names, ", ")))
	if err != nil {
		return result, err
	}
	mustTransition(machine.Finish())
	result.State = machine.State()
	result.Branches = names

	colored := make([]string, 0, len(names))
	for _, name := range names {
		colored = append(colored, output.ColorBranchName(name, name == last))
	}
	splog.Info("Split %s into %s.", output.ColorBranchName(branch, false), strings.Join(colored, ", "))
	if node := graph.Node(branch); node != nil && node.PR != nil && node.PR.Number > 0 {
		splog.Tip("Run 'stackit submit' to open pull requests for the new branches.")
	}
	return result, nil
}
