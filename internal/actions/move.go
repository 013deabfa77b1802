package actions

import (
	"fmt"
	"slices"

	"stackit.dev/stackcore/internal/config"
	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// MoveOptions contains options for the move command
type MoveOptions struct {
	// Branch defaults to the current branch
	Branch string
	Onto   string
}

// MoveAction reparents a branch onto another branch (or trunk) and restacks
// it and its descendants, in one reparent transaction
func MoveAction(ctx *runtime.Context, opts MoveOptions) (*RestackReport, error) {
	eng := ctx.Engine
	repo := eng.Repo()
	splog := ctx.Splog

	if err := ensureNoRebase(ctx); err != nil {
		return nil, err
	}
	current := eng.CurrentBranch(ctx)
	branch := opts.Branch
	if branch == "" {
		branch = current
	}
	if branch == "" {
		return nil, stackiterrors.ErrNotOnBranch
	}

	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMove(ctx, graph, branch, opts.Onto); err != nil {
		return nil, err
	}

	ontoHead, err := repo.HeadOf(ctx, opts.Onto)
	if err != nil {
		return nil, err
	}
	warnIfNotPushed(ctx, opts.Onto)
	descendants := graph.Descendants(branch)
	branches := append([]string{branch}, descendants...)

	tx, err := ctx.Ops.Begin(ctx, ops.KindReparent, eng.Trunk(), branches...)
	if err != nil {
		return nil, err
	}
	machine := NewMachine()
	mustTransition(machine.Run("reparent"))
	report := &RestackReport{}

	oldParent := graph.Parent(branch)
	outcome, err := eng.RebaseOnto(ctx, branch, opts.Onto, ontoHead)
	if err != nil {
		mustTransition(machine.Abort(err.Error()))
		report.State = machine.State()
		return report, tx.Abort(ctx, fmt.Errorf("failed to move %s onto %s: %w", branch, opts.Onto, err))
	}

	state := &config.ContinuationState{
		OpID:                  tx.OpID(),
		Kind:                  string(ops.KindReparent),
		CurrentBranchOverride: current,
	}
	if outcome.Result == engine.RestackConflict {
		state.RebasedBranch = branch
		state.RebasedBranchParent = opts.Onto
		state.RebasedBranchBase = ontoHead
		state.BranchesToRestack = descendants
		if err := config.PersistContinuationState(ctx.RepoRoot, state); err != nil {
			return report, tx.Abort(ctx, fmt.Errorf("failed to persist continuation: %w", err))
		}
		mustTransition(machine.Pause("conflict on " + branch))
		report.State = machine.State()
		report.Conflict = branch
		report.Pending = descendants
		PrintConflictStatus(ctx, repo, branch, descendants, splog)
		return report, conflictError(report)
	}
	report.Restacked = append(report.Restacked, branch)
	splog.Info("Moved %s from %s onto %s.",
		output.ColorBranchName(branch, branch == current),
		output.ColorBranchName(oldParent, false),
		output.ColorBranchName(opts.Onto, false))

	mustTransition(machine.Run("restack"))
	if err := restackBranches(ctx, tx, descendants, state, report); err != nil {
		mustTransition(machine.Abort(err.Error()))
		report.State = machine.State()
		return report, tx.Abort(ctx, err)
	}
	if report.Paused() {
		mustTransition(machine.Pause("conflict on " + report.Conflict))
		report.State = machine.State()
		return report, conflictError(report)
	}

	report.Receipt, err = finish(ctx, tx, current, fmt.Sprintf("moved %s from %s onto %s", branch, oldParent, opts.Onto))
	if err != nil {
		return report, err
	}
	mustTransition(machine.Finish())
	report.State = machine.State()
	splog.Tip("Run 'stackit submit' to retarget the pull requests of the moved branches.")
	return report, nil
}

// warnIfNotPushed warns when onto has never been pushed, since a pull
// request cannot target it yet
func warnIfNotPushed(ctx *runtime.Context, onto string) {
	eng := ctx.Engine
	if eng.IsTrunk(onto) {
		return
	}
	_, exists, err := eng.Repo().RemoteHeadOf(ctx, eng.Remote(), onto)
	if err != nil {
		ctx.Splog.Debug("Could not check %s on %s: %v", onto, eng.Remote(), err)
		return
	}
	if !exists {
		ctx.Splog.Warn("%s does not exist on %s yet; submit it before the moved branches.", onto, eng.Remote())
	}
}

func validateMove(ctx *runtime.Context, graph *engine.Graph, branch, onto string) error {
	eng := ctx.Engine
	if eng.IsTrunk(branch) {
		return fmt.Errorf("cannot move %s: %w", branch, stackiterrors.ErrTrunkOperation)
	}
	if !graph.Has(branch) {
		return fmt.Errorf("cannot move %s: %w", branch, stackiterrors.ErrNotTracked)
	}
	if onto == "" {
		return fmt.Errorf("no target branch given for %s", branch)
	}
	if !eng.Repo().BranchExists(ctx, onto) {
		return stackiterrors.NewBranchNotFoundError(onto)
	}
	if !eng.IsTrunk(onto) && !graph.Has(onto) {
		return fmt.Errorf("cannot move onto %s: %w", onto, stackiterrors.ErrNotTracked)
	}
	if onto == branch || slices.Contains(graph.Descendants(branch), onto) {
		return &stackiterrors.CycleError{Branch: branch, NewParent: onto}
	}
	return nil
}
