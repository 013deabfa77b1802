package actions

import (
	"fmt"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// TrackOptions contains options for the track command
type TrackOptions struct {
	// Branch defaults to the current branch
	Branch string
	// Parent defaults to trunk
	Parent string
}

// TrackAction starts tracking a branch with the given parent
func TrackAction(ctx *runtime.Context, opts TrackOptions) (*ops.Receipt, error) {
	eng := ctx.Engine
	branch := opts.Branch
	if branch == "" {
		branch = eng.CurrentBranch(ctx)
	}
	if branch == "" {
		return nil, stackiterrors.ErrNotOnBranch
	}
	parent := opts.Parent
	if parent == "" {
		parent = eng.Trunk()
	}

	tx, err := ctx.Ops.Begin(ctx, ops.KindTrack, eng.Trunk(), branch)
	if err != nil {
		return nil, err
	}
	if err := eng.Track(ctx, branch, parent); err != nil {
		return nil, tx.Abort(ctx, err)
	}
	ctx.Splog.Info("Tracked %s on %s.", output.ColorBranchName(branch, false), output.ColorBranchName(parent, false))
	return tx.Commit(ctx, fmt.Sprintf("tracked %s on %s", branch, parent))
}

// UntrackAction stops tracking a branch. Its children move to its parent.
func UntrackAction(ctx *runtime.Context, branch string) (*ops.Receipt, error) {
	eng := ctx.Engine
	if branch == "" {
		branch = eng.CurrentBranch(ctx)
	}
	if branch == "" {
		return nil, stackiterrors.ErrNotOnBranch
	}
	if eng.IsTrunk(branch) {
		return nil, fmt.Errorf("cannot untrack %s: %w", branch, stackiterrors.ErrTrunkOperation)
	}

	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if !graph.Has(branch) {
		return nil, fmt.Errorf("cannot untrack %s: %w", branch, stackiterrors.ErrNotTracked)
	}
	branches := append([]string{branch}, graph.Children(branch)...)

	tx, err := ctx.Ops.Begin(ctx, ops.KindUntrack, eng.Trunk(), branches...)
	if err != nil {
		return nil, err
	}
	children, err := eng.Untrack(ctx, branch)
	if err != nil {
		return nil, tx.Abort(ctx, err)
	}
	ctx.Splog.Info("Untracked %s.", output.ColorBranchName(branch, false))
	for _, child := range children {
		ctx.Splog.Info("%s now stacks on %s.", output.ColorBranchName(child, false), output.ColorBranchName(graph.Parent(branch), false))
	}
	return tx.Commit(ctx, "untracked "+branch)
}
