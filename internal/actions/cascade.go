package actions

import (
	"stackit.dev/stackcore/internal/config"
	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/runtime"
)

// CascadeOptions contains options for the cascade command
type CascadeOptions struct {
	// Submit pushes the stack and syncs its pull requests once restacking completes
	Submit bool
}

// CascadeAction restacks the whole stack containing the current branch,
// starting from its bottom-most branch, then optionally submits it. The
// original branch is checked out again unless a conflict pauses the cascade.
func CascadeAction(ctx *runtime.Context, opts CascadeOptions) (*RestackReport, error) {
	eng := ctx.Engine

	if err := ensureNoRebase(ctx); err != nil {
		return nil, err
	}
	current := eng.CurrentBranch(ctx)
	if current == "" {
		return nil, stackiterrors.ErrNotOnBranch
	}

	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if !graph.Has(current) && !graph.IsTrunk(current) {
		return nil, stackiterrors.ErrNotTracked
	}
	root := current
	if !graph.IsTrunk(current) {
		root = graph.StackRoot(current)
	}
	branches := graph.Scoped(root, engine.ScopeUpstack)
	report := &RestackReport{}
	if len(branches) == 0 {
		ctx.Splog.Info("No branches to cascade.")
		report.State = StateDone
		return report, nil
	}

	var forge github.Client
	if opts.Submit {
		if forge, err = ctx.GitHub(); err != nil {
			return nil, err
		}
	}

	tx, err := ctx.Ops.Begin(ctx, ops.KindCascade, eng.Trunk(), branches...)
	if err != nil {
		return nil, err
	}
	machine := NewMachine()
	mustTransition(machine.Run("restack"))

	state := &config.ContinuationState{
		OpID:                  tx.OpID(),
		Kind:                  string(ops.KindCascade),
		Submit:                opts.Submit,
		CurrentBranchOverride: current,
	}
	if err := restackBranches(ctx, tx, branches, state, report); err != nil {
		mustTransition(machine.Abort(err.Error()))
		report.State = machine.State()
		return report, tx.Abort(ctx, err)
	}
	if report.Paused() {
		mustTransition(machine.Pause("conflict on " + report.Conflict))
		report.State = machine.State()
		return report, conflictError(report)
	}

	summary := summarize("cascaded", branches)
	if opts.Submit {
		mustTransition(machine.Run("submit"))
		report.Pushed, err = submitBranches(ctx, tx, forge, branches)
		if err != nil {
			mustTransition(machine.Abort(err.Error()))
			report.State = machine.State()
			return report, commitPartial(ctx, tx, current, summary+" (submit incomplete)", err)
		}
	}

	report.Receipt, err = finish(ctx, tx, current, summary)
	if err != nil {
		return report, err
	}
	mustTransition(machine.Finish())
	report.State = machine.State()
	return report, nil
}
