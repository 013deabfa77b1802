package actions

import (
	"errors"
	"fmt"
	"time"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/git"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/internal/tui"
)

// MergeProgressReporter receives merge progress, step by step
type MergeProgressReporter interface {
	StepStarted(stepIndex int, description string)
	StepCompleted(stepIndex int)
	StepFailed(stepIndex int, err error)
	StepWaiting(stepIndex int, elapsed, timeout time.Duration, detail string)
}

// MergeHaltError reports the step a merge cascade stopped at. Pull requests
// merged before it stay merged; rerunning merge resumes at the first unmerged one.
type MergeHaltError struct {
	Branch string
	Step   MergeStepType
	PR     int
	Err    error
}

func (e *MergeHaltError) Error() string {
	subject := e.Branch
	if e.PR > 0 {
		subject = fmt.Sprintf("PR #%d (%s)", e.PR, e.Branch)
	}
	if subject == "" {
		return fmt.Sprintf("merge halted at %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("merge halted at %s of %s: %v", e.Step, subject, e.Err)
}

func (e *MergeHaltError) Unwrap() error {
	return e.Err
}

// mergeExecutor runs a plan inside one merge transaction
type mergeExecutor struct {
	ctx      *runtime.Context
	forge    github.Client
	tx       *ops.Tx
	plan     *MergePlan
	opts     MergeOptions
	reporter MergeProgressReporter
	result   *MergeResult
	// mergedElsewhere holds branches found merged while waiting on CI
	mergedElsewhere map[string]bool
}

// executeMergePlan runs the steps, through the progress view when attached to a terminal
func executeMergePlan(ex *mergeExecutor) error {
	if ex.reporter != nil || !tui.IsTTY() {
		return ex.run()
	}

	reporter := tui.NewChannelMergeProgressReporter()
	descriptions := make([]string, len(ex.plan.Steps))
	for i, step := range ex.plan.Steps {
		descriptions[i] = step.Description
	}
	done := make(chan bool, 1)
	tuiErr := make(chan error, 1)
	go func() {
		if err := tui.RunMergeTUI(mergeGroups(ex.plan), descriptions, reporter.Updates(), done); err != nil {
			tuiErr <- err
		}
	}()

	ex.reporter = reporter
	err := ex.run()
	reporter.Close()

	select {
	case <-done:
	case err := <-tuiErr:
		ex.ctx.Splog.Debug("Merge progress view failed: %v", err)
	}
	return err
}

// mergeGroups shows every pull request as one line, then the leftovers, then cleanup
func mergeGroups(plan *MergePlan) []tui.MergeGroup {
	var groups []tui.MergeGroup
	assigned := make(map[int]bool)

	for _, entry := range plan.ToMerge() {
		var indices []int
		for i, step := range plan.Steps {
			if step.BranchName == entry.Branch && step.StepType != StepDeleteBranch {
				indices = append(indices, i)
				assigned[i] = true
			}
		}
		if len(indices) > 0 {
			groups = append(groups, tui.MergeGroup{
				Label:       fmt.Sprintf("PR #%d (%s)", entry.PR, entry.Branch),
				StepIndices: indices,
			})
		}
	}

	var cleanup []int
	for i, step := range plan.Steps {
		if assigned[i] {
			continue
		}
		switch step.StepType {
		case StepDeleteBranch:
			cleanup = append(cleanup, i)
		case StepSyncTrunk:
			groups = append(groups, tui.MergeGroup{Label: "Sync " + plan.Trunk, StepIndices: []int{i}})
		default:
			groups = append(groups, tui.MergeGroup{Label: step.Description, StepIndices: []int{i}})
		}
	}
	if len(cleanup) > 0 {
		groups = append(groups, tui.MergeGroup{Label: "Delete merged branches", StepIndices: cleanup})
	}
	return groups
}

func (ex *mergeExecutor) run() error {
	for i, step := range ex.plan.Steps {
		if ex.reporter != nil {
			ex.reporter.StepStarted(i, step.Description)
		}
		if err := ex.executeStep(i, step); err != nil {
			if ex.reporter != nil {
				ex.reporter.StepFailed(i, err)
			}
			return &MergeHaltError{Branch: step.BranchName, Step: step.StepType, PR: step.PRNumber, Err: err}
		}
		if ex.reporter != nil {
			ex.reporter.StepCompleted(i)
		} else {
			ex.ctx.Splog.Info("✓ %s", step.Description)
		}
	}
	return nil
}

func (ex *mergeExecutor) executeStep(i int, step MergePlanStep) error {
	if err := ex.ctx.Err(); err != nil {
		return err
	}
	switch step.StepType {
	case StepWaitCI:
		return ex.waitForCI(i, step)
	case StepMergePR:
		return ex.mergePR(step)
	case StepSyncTrunk:
		return ex.syncTrunk()
	case StepRebaseOntoTrunk:
		return ex.rebaseOntoTrunk(step)
	case StepRestackUpstack:
		return ex.restackUpstack(step.BranchName)
	case StepDeleteBranch:
		return ex.deleteBranch(step.BranchName)
	default:
		return fmt.Errorf("unknown merge step %s", step.StepType)
	}
}

// waitForCI polls the pull request until its checks pass. Failing checks,
// a draft, requested changes or a closed pull request stop the cascade, as
// does the deadline. Without waiting a single check is made and only red CI stops it.
func (ex *mergeExecutor) waitForCI(i int, step MergePlanStep) error {
	timeout := step.WaitTimeout
	if timeout <= 0 {
		timeout = ex.ctx.Config.Merge.Timeout
	}
	poll := ex.opts.PollInterval
	if poll <= 0 {
		poll = ex.ctx.Config.Merge.PollInterval
	}
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		status, err := ex.forge.GetPRStatus(ex.ctx, step.PRNumber)
		if err != nil {
			return err
		}
		switch {
		case status.State == github.PRStateMerged:
			ex.mergedElsewhere[step.BranchName] = true
			return nil
		case status.State == github.PRStateClosed, status.Draft, status.ChangesRequested, status.CI == github.CIFailure:
			return fmt.Errorf("%s", status.StatusText())
		case status.IsReady():
			return nil
		case ex.opts.NoWait:
			ex.ctx.Splog.Debug("PR #%d is %s; merging without waiting", step.PRNumber, status.StatusText())
			return nil
		}

		elapsed := time.Since(start)
		if ex.reporter != nil {
			ex.reporter.StepWaiting(i, elapsed, timeout, status.StatusText())
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return stackiterrors.NewForgeTimeoutError("wait for CI", step.PRNumber,
				fmt.Errorf("still %s after %v", status.StatusText(), timeout))
		}
		wait := poll
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ex.ctx.Done():
			return ex.ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (ex *mergeExecutor) mergePR(step MergePlanStep) error {
	eng := ex.ctx.Engine
	if ex.mergedElsewhere[step.BranchName] {
		ex.ctx.Splog.Info("PR #%d (%s) was merged outside stackit.", step.PRNumber, step.BranchName)
	} else if err := ex.forge.MergePR(ex.ctx, step.PRNumber, ex.opts.Method); err != nil {
		return err
	}
	ex.result.Merged = append(ex.result.Merged, step.BranchName)

	if err := ex.tx.Track(ex.ctx, step.BranchName); err != nil {
		return err
	}
	node, err := eng.Store().Load(ex.ctx, step.BranchName)
	if err != nil {
		return err
	}
	ref := &engine.PRRef{Number: step.PRNumber, State: string(github.PRStateMerged), Provider: "github", Base: eng.Trunk()}
	if node.PR != nil {
		ref.Base = node.PR.Base
	}
	return eng.Store().SetPR(ex.ctx, step.BranchName, ref)
}

func (ex *mergeExecutor) syncTrunk() error {
	eng := ex.ctx.Engine
	result, err := eng.Repo().PullTrunk(ex.ctx, eng.Remote(), eng.Trunk())
	if err != nil {
		return err
	}
	if result == git.PullConflict {
		return fmt.Errorf("local %s has diverged from %s/%s; reset it to the remote and rerun merge",
			eng.Trunk(), eng.Remote(), eng.Trunk())
	}
	return nil
}

// rebaseOntoTrunk moves a branch whose parent was merged onto trunk, points
// its pull request at trunk and force-pushes it. A conflict aborts the rebase.
func (ex *mergeExecutor) rebaseOntoTrunk(step MergePlanStep) error {
	eng := ex.ctx.Engine
	repo := eng.Repo()
	branch := step.BranchName
	trunk := eng.Trunk()

	if err := ex.tx.Track(ex.ctx, branch); err != nil {
		return err
	}
	trunkHead, err := repo.HeadOf(ex.ctx, trunk)
	if err != nil {
		return err
	}
	outcome, err := eng.RebaseOnto(ex.ctx, branch, trunk, trunkHead)
	if err != nil {
		return err
	}
	if outcome.Result == engine.RestackConflict {
		if abortErr := repo.RebaseAbort(ex.ctx); abortErr != nil {
			ex.ctx.Splog.Debug("Failed to abort rebase of %s: %v", branch, abortErr)
		}
		return stackiterrors.NewRebaseConflictError(branch,
			fmt.Sprintf("rebase it onto %s with 'stackit move --onto %s', then rerun merge", trunk, trunk))
	}
	ex.result.Rebased = append(ex.result.Rebased, branch)

	if step.PRNumber > 0 {
		if err := ex.forge.UpdatePRBase(ex.ctx, step.PRNumber, trunk); err != nil {
			return err
		}
		ref := &engine.PRRef{Number: step.PRNumber, State: string(github.PRStateOpen), Provider: "github", Base: trunk}
		if err := eng.Store().SetPR(ex.ctx, branch, ref); err != nil {
			return err
		}
	}

	remote := eng.Remote()
	prior, exists, err := repo.RemoteHeadOf(ex.ctx, remote, branch)
	if err != nil {
		return err
	}
	if !exists && step.PRNumber == 0 {
		ex.ctx.Splog.Debug("%s is not on %s; not pushing", branch, remote)
		return nil
	}
	if err := ex.tx.MarkForcePushed(ex.ctx, branch, remote, prior); err != nil {
		return err
	}
	return repo.ForcePush(ex.ctx, remote, branch)
}

// restackUpstack restacks the descendants of a rebased leftover locally
func (ex *mergeExecutor) restackUpstack(branch string) error {
	eng := ex.ctx.Engine
	graph, err := eng.Graph(ex.ctx)
	if err != nil {
		return err
	}
	for _, d := range graph.Descendants(branch) {
		if err := ex.tx.Track(ex.ctx, d); err != nil {
			return err
		}
		outcome, err := eng.RestackBranch(ex.ctx, d)
		if err != nil {
			return err
		}
		if outcome.Result == engine.RestackConflict {
			if abortErr := eng.Repo().RebaseAbort(ex.ctx); abortErr != nil {
				ex.ctx.Splog.Debug("Failed to abort rebase of %s: %v", d, abortErr)
			}
			return stackiterrors.NewRebaseConflictError(d, "run 'stackit restack' to resolve it")
		}
		if outcome.Result == engine.RestackDone {
			ex.result.Rebased = append(ex.result.Rebased, d)
		}
	}
	return nil
}

// deleteBranch removes a merged branch, its metadata and its remote copy
func (ex *mergeExecutor) deleteBranch(branch string) error {
	eng := ex.ctx.Engine
	repo := eng.Repo()

	if err := ex.tx.Track(ex.ctx, branch); err != nil {
		return err
	}
	if eng.CurrentBranch(ex.ctx) == branch {
		if err := repo.Checkout(ex.ctx, eng.Trunk()); err != nil {
			return err
		}
	}
	if repo.BranchExists(ex.ctx, branch) {
		if err := repo.DeleteBranch(ex.ctx, branch); err != nil {
			return err
		}
	}
	if err := eng.Store().Delete(ex.ctx, branch); err != nil && !errors.Is(err, stackiterrors.ErrNotTracked) {
		return err
	}

	remote := eng.Remote()
	prior, exists, err := repo.RemoteHeadOf(ex.ctx, remote, branch)
	if err != nil {
		ex.ctx.Splog.Debug("Could not check %s/%s: %v", remote, branch, err)
	} else if exists {
		if err := ex.tx.MarkForcePushed(ex.ctx, branch, remote, prior); err != nil {
			return err
		}
		if err := repo.DeleteRemoteBranch(ex.ctx, remote, branch); err != nil {
			return err
		}
	}
	ex.result.Deleted = append(ex.result.Deleted, branch)
	ex.ctx.Splog.Debug("Deleted %s", output.ColorBranchName(branch, false))
	return nil
}
