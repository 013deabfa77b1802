package actions

import (
	"fmt"
	"strings"

	"stackit.dev/stackcore/internal/config"
	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// RestackOptions contains options for the restack command
type RestackOptions struct {
	// Branch defaults to the current branch
	Branch string
	// Scope defaults to the whole stack
	Scope engine.Scope
}

// RestackReport describes what a restack, cascade or continue did
type RestackReport struct {
	State     State
	Restacked []string
	Unneeded  []string
	// Conflict is the branch whose rebase stopped; Pending were not visited yet
	Conflict string
	Pending  []string
	// Pushed lists branches force-pushed by a cascade submit
	Pushed  []string
	Receipt *ops.Receipt
}

// Paused reports whether the operation stopped on a conflict
func (r *RestackReport) Paused() bool {
	return r.Conflict != ""
}

// RestackAction restacks the branches in scope, in pre-order, inside one
// restack transaction. A conflict leaves the transaction open and returns a
// RebaseConflictError together with the report.
func RestackAction(ctx *runtime.Context, opts RestackOptions) (*RestackReport, error) {
	eng := ctx.Engine
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
	scope := opts.Scope
	if scope == "" {
		scope = engine.ScopeStack
	}

	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	if !graph.Has(branch) && !graph.IsTrunk(branch) {
		return nil, fmt.Errorf("%s: %w", branch, stackiterrors.ErrNotTracked)
	}

	report := &RestackReport{}
	branches := graph.Scoped(branch, scope)
	if len(branches) == 0 {
		splog.Info("No branches to restack.")
		report.State = StateDone
		return report, nil
	}

	stale, err := anyNeedsRestack(ctx, branches)
	if err != nil {
		return nil, err
	}
	if !stale {
		for _, b := range branches {
			report.Unneeded = append(report.Unneeded, b)
			splog.Info("%s does not need to be restacked on %s.",
				output.ColorBranchName(b, b == current),
				output.ColorBranchName(graph.Parent(b), false))
		}
		report.State = StateDone
		return report, nil
	}

	tx, err := ctx.Ops.Begin(ctx, ops.KindRestack, eng.Trunk(), branches...)
	if err != nil {
		return nil, err
	}
	machine := NewMachine()
	mustTransition(machine.Run("restack"))

	state := &config.ContinuationState{
		OpID:                  tx.OpID(),
		Kind:                  string(ops.KindRestack),
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

	report.Receipt, err = finish(ctx, tx, current, summarize("restacked", report.Restacked))
	if err != nil {
		return report, err
	}
	mustTransition(machine.Finish())
	report.State = machine.State()
	return report, nil
}

// restackBranches restacks branches in order. On a conflict it persists the
// continuation, prints the conflict and returns with report.Conflict set.
func restackBranches(ctx *runtime.Context, tx *ops.Tx, branches []string, state *config.ContinuationState, report *RestackReport) error {
	eng := ctx.Engine
	splog := ctx.Splog
	current := state.CurrentBranchOverride

	for i, branch := range branches {
		if eng.IsTrunk(branch) {
			continue
		}
		if err := tx.Track(ctx, branch); err != nil {
			return err
		}

		outcome, err := eng.RestackBranch(ctx, branch)
		if err != nil {
			return fmt.Errorf("failed to restack %s: %w", branch, err)
		}

		if outcome.Reparented {
			splog.Info("Reparented %s from %s to %s (parent was merged or deleted).",
				output.ColorBranchName(branch, branch == current),
				output.ColorBranchName(outcome.OldParent, false),
				output.ColorBranchName(outcome.Parent, false))
		}

		switch outcome.Result {
		case engine.RestackDone:
			report.Restacked = append(report.Restacked, branch)
			splog.Info("Restacked %s on %s.",
				output.ColorBranchName(branch, branch == current),
				output.ColorBranchName(outcome.Parent, false))
		case engine.RestackUnneeded:
			report.Unneeded = append(report.Unneeded, branch)
			splog.Info("%s does not need to be restacked on %s.",
				output.ColorBranchName(branch, branch == current),
				output.ColorBranchName(outcome.Parent, false))
		case engine.RestackConflict:
			state.RebasedBranch = branch
			state.RebasedBranchParent = outcome.Parent
			state.RebasedBranchBase = outcome.ParentHead
			state.BranchesToRestack = append([]string{}, branches[i+1:]...)
			if err := config.PersistContinuationState(ctx.RepoRoot, state); err != nil {
				return fmt.Errorf("failed to persist continuation: %w", err)
			}

			report.Conflict = branch
			report.Pending = state.BranchesToRestack
			PrintConflictStatus(ctx, eng.Repo(), branch, report.Pending, splog)
			return nil
		}
	}
	return nil
}

func anyNeedsRestack(ctx *runtime.Context, branches []string) (bool, error) {
	for _, b := range branches {
		if ctx.Engine.IsTrunk(b) {
			continue
		}
		needs, err := ctx.Engine.NeedsRestack(ctx, b)
		if err != nil {
			return false, err
		}
		if needs {
			return true, nil
		}
	}
	return false, nil
}

// ensureNoRebase refuses to start a multi-step operation mid-rebase
func ensureNoRebase(ctx *runtime.Context) error {
	if !ctx.Engine.Repo().IsRebaseInProgress(ctx) {
		return nil
	}
	if open, ok := openOperation(ctx); ok {
		return fmt.Errorf("%w for %s operation %s; resolve it and run 'stackit continue', or run 'stackit abort'",
			stackiterrors.ErrRebaseInProgress, open.Kind, open.OpID)
	}
	return fmt.Errorf("%w that stackit did not start; finish it with 'git rebase --continue' or 'git rebase --abort'",
		stackiterrors.ErrRebaseInProgress)
}

// finish commits the transaction and checks returnTo out again
func finish(ctx *runtime.Context, tx *ops.Tx, returnTo, summary string) (*ops.Receipt, error) {
	receipt, err := tx.Commit(ctx, summary)
	if err != nil {
		return nil, err
	}
	if err := checkoutIfNeeded(ctx, returnTo); err != nil {
		return receipt, err
	}
	if receipt != nil {
		ctx.Splog.Debug("Recorded operation %s", receipt.OpID)
	}
	return receipt, nil
}

// commitPartial keeps the progress made before cause halted the operation
func commitPartial(ctx *runtime.Context, tx *ops.Tx, returnTo, summary string, cause error) error {
	if _, err := finish(ctx, tx, returnTo, summary); err != nil {
		ctx.Splog.Debug("Failed to record partial progress: %v", err)
		return tx.Fail(ctx, cause)
	}
	return cause
}

func checkoutIfNeeded(ctx *runtime.Context, branch string) error {
	repo := ctx.Engine.Repo()
	if branch == "" || ctx.Engine.CurrentBranch(ctx) == branch || !repo.BranchExists(ctx, branch) {
		return nil
	}
	return repo.Checkout(ctx, branch)
}

func conflictError(report *RestackReport) error {
	return stackiterrors.NewRebaseConflictError(report.Conflict,
		"resolve it and run 'stackit continue', or run 'stackit abort' to roll back")
}

func summarize(verb string, branches []string) string {
	if len(branches) == 0 {
		return verb
	}
	return verb + " " + strings.Join(branches, ", ")
}
