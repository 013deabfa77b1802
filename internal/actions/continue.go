package actions

import (
	"errors"
	"fmt"

	"stackit.dev/stackcore/internal/config"
	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// ContinueOptions contains options for the continue command
type ContinueOptions struct {
	// AddAll stages every change before continuing the rebase
	AddAll bool
}

// ContinueAction finishes the rebase that paused a restack, cascade or move
// and carries on with the branches still to restack, inside the same transaction
func ContinueAction(ctx *runtime.Context, opts ContinueOptions) (*RestackReport, error) {
	eng := ctx.Engine
	repo := eng.Repo()
	splog := ctx.Splog

	state, err := config.GetContinuationState(ctx.RepoRoot)
	if errors.Is(err, stackiterrors.ErrNoTransaction) {
		if repo.IsRebaseInProgress(ctx) {
			return nil, fmt.Errorf("the rebase in progress was not started by stackit; use 'git rebase --continue': %w", stackiterrors.ErrNoTransaction)
		}
		return nil, fmt.Errorf("nothing to continue: %w", stackiterrors.ErrNoTransaction)
	}
	if err != nil {
		return nil, err
	}

	tx, err := ctx.Ops.Resume(ctx)
	if err == nil && tx.OpID() != state.OpID {
		err = fmt.Errorf("open operation is %s, not %s: %w", tx.OpID(), state.OpID, stackiterrors.ErrNoTransaction)
	}
	if err != nil {
		if errors.Is(err, stackiterrors.ErrNoTransaction) {
			_ = config.ClearContinuationState(ctx.RepoRoot)
			return nil, fmt.Errorf("stale continuation for operation %s was discarded: %w", state.OpID, err)
		}
		return nil, err
	}

	// the rebase may already have been finished with git itself
	if opts.AddAll && repo.IsRebaseInProgress(ctx) {
		if err := repo.AddAll(ctx); err != nil {
			return nil, err
		}
	}

	machine := NewPausedMachine(state.Kind, "conflict on "+state.RebasedBranch)
	mustTransition(machine.Run("restack"))
	report := &RestackReport{}

	result, err := eng.ContinueRestack(ctx, state.RebasedBranch, state.RebasedBranchParent, state.RebasedBranchBase)
	if err != nil {
		return report, err
	}
	if result == engine.RestackConflict {
		mustTransition(machine.Pause("conflict on " + state.RebasedBranch))
		report.State = machine.State()
		report.Conflict = state.RebasedBranch
		report.Pending = state.BranchesToRestack
		PrintConflictStatus(ctx, repo, state.RebasedBranch, report.Pending, splog)
		return report, conflictError(report)
	}
	report.Restacked = append(report.Restacked, state.RebasedBranch)
	splog.Info("Resolved rebase conflict for %s.", output.ColorBranchName(state.RebasedBranch, false))

	next := *state
	if err := restackBranches(ctx, tx, state.BranchesToRestack, &next, report); err != nil {
		mustTransition(machine.Abort(err.Error()))
		report.State = machine.State()
		_ = config.ClearContinuationState(ctx.RepoRoot)
		return report, tx.Abort(ctx, err)
	}
	if report.Paused() {
		mustTransition(machine.Pause("conflict on " + report.Conflict))
		report.State = machine.State()
		return report, conflictError(report)
	}

	if err := config.ClearContinuationState(ctx.RepoRoot); err != nil {
		return report, err
	}

	summary := summarize(string(tx.Kind()), tx.Branches())
	if state.Submit {
		mustTransition(machine.Run("submit"))
		forge, err := ctx.GitHub()
		if err == nil {
			report.Pushed, err = submitBranches(ctx, tx, forge, tx.Branches())
		}
		if err != nil {
			mustTransition(machine.Abort(err.Error()))
			report.State = machine.State()
			return report, commitPartial(ctx, tx, state.CurrentBranchOverride, summary+" (submit incomplete)", err)
		}
	}

	report.Receipt, err = finish(ctx, tx, state.CurrentBranchOverride, summary)
	if err != nil {
		return report, err
	}
	mustTransition(machine.Finish())
	report.State = machine.State()
	return report, nil
}

// AbortAction rolls back the operation paused on a conflict: the rebase is
// aborted and every branch it touched goes back to its snapshot
func AbortAction(ctx *runtime.Context) error {
	repo := ctx.Engine.Repo()
	splog := ctx.Splog

	tx, err := ctx.Ops.Resume(ctx)
	if errors.Is(err, stackiterrors.ErrNoTransaction) {
		if !repo.IsRebaseInProgress(ctx) {
			_ = config.ClearContinuationState(ctx.RepoRoot)
			return fmt.Errorf("nothing to abort: %w", stackiterrors.ErrNoTransaction)
		}
		if err := repo.RebaseAbort(ctx); err != nil {
			return err
		}
		splog.Info("Aborted rebase.")
		return config.ClearContinuationState(ctx.RepoRoot)
	}
	if err != nil {
		return err
	}

	if err := tx.Abort(ctx, nil); err != nil {
		return err
	}
	if err := config.ClearContinuationState(ctx.RepoRoot); err != nil {
		return err
	}
	splog.Info("Aborted %s operation %s; %d branch(es) restored.", tx.Kind(), tx.OpID(), len(tx.Branches()))
	return nil
}

// openOperation describes the transaction left open by a paused command, if any
func openOperation(ctx *runtime.Context) (*ops.Receipt, bool) {
	open, err := ctx.Ops.Store().LoadOpen()
	if err != nil {
		return nil, false
	}
	return open, true
}
