package actions

import (
	"errors"
	"fmt"
	"time"

	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/internal/tui"
)

// MergeOptions contains options for the merge command
type MergeOptions struct {
	// All merges the whole stack instead of stopping at the current branch
	All    bool
	Method github.MergeMethod
	// NoWait checks CI once instead of polling
	NoWait       bool
	Timeout      time.Duration
	PollInterval time.Duration
	NoDelete     bool
	DryRun       bool
	// Confirm asks before anything is merged
	Confirm  bool
	Reporter MergeProgressReporter
}

// MergeResult describes what a merge cascade did
type MergeResult struct {
	State   State
	Plan    *MergePlan
	Merged  []string
	Skipped []string
	Rebased []string
	Deleted []string
	Receipt *ops.Receipt
}

// MergeAction merges the pull requests of the stack bottom to top. Each
// merge waits for CI, lands the pull request, pulls trunk and moves the next
// branch onto it. A failed step halts the cascade; what was merged stays
// merged and is recorded, and rerunning merge picks up where it stopped.
func MergeAction(ctx *runtime.Context, opts MergeOptions) (*MergeResult, error) {
	eng := ctx.Engine
	splog := ctx.Splog

	if err := ensureNoRebase(ctx); err != nil {
		return nil, err
	}
	dirty, err := eng.Repo().IsDirty(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, errors.New("the working tree has uncommitted changes; commit or stash them before merging")
	}
	opts = mergeDefaults(ctx, opts)

	forge, err := ctx.GitHub()
	if err != nil {
		return nil, err
	}
	plan, err := CreateMergePlan(ctx, forge, opts)
	if err != nil {
		return nil, err
	}
	result := &MergeResult{Plan: plan}
	for _, entry := range plan.Entries {
		if entry.Merged {
			result.Skipped = append(result.Skipped, entry.Branch)
		}
	}
	if plan.IsEmpty() {
		splog.Info("Nothing to merge.")
		result.State = StateDone
		return result, nil
	}

	splog.Page(FormatMergePlan(plan))
	if opts.DryRun {
		result.State = StateIdle
		return result, nil
	}
	if opts.Confirm {
		confirmed, err := tui.PromptConfirm("Proceed with merge?", false)
		if err != nil {
			return result, fmt.Errorf("confirmation canceled: %w", err)
		}
		if !confirmed {
			splog.Info("Merge canceled.")
			return result, nil
		}
	}

	tx, err := ctx.Ops.Begin(ctx, ops.KindMerge, eng.Trunk(), plan.Branches()...)
	if err != nil {
		return result, err
	}
	machine := NewMachine()
	mustTransition(machine.Run("merge"))

	ex := &mergeExecutor{
		ctx:             ctx,
		forge:           forge,
		tx:              tx,
		plan:            plan,
		opts:            opts,
		reporter:        opts.Reporter,
		result:          result,
		mergedElsewhere: map[string]bool{},
	}
	if err := executeMergePlan(ex); err != nil {
		mustTransition(machine.Abort(err.Error()))
		result.State = machine.State()
		printMergeHalt(ctx, err)
		return result, commitPartial(ctx, tx, plan.CurrentBranch, mergeSummary(result, true), err)
	}

	result.Receipt, err = finish(ctx, tx, eng.Trunk(), mergeSummary(result, false))
	if err != nil {
		return result, err
	}
	mustTransition(machine.Finish())
	result.State = machine.State()
	splog.Info("Merged %d pull request(s) into %s.", len(result.Merged), eng.Trunk())
	return result, nil
}

func mergeDefaults(ctx *runtime.Context, opts MergeOptions) MergeOptions {
	cfg := ctx.Config.Merge
	if opts.Method == "" {
		opts.Method = github.MergeMethod(cfg.Method)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Timeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = cfg.PollInterval
	}
	if !cfg.DeleteBranches {
		opts.NoDelete = true
	}
	return opts
}

func printMergeHalt(ctx *runtime.Context, err error) {
	splog := ctx.Splog
	var halt *MergeHaltError
	if errors.As(err, &halt) && halt.PR > 0 {
		splog.Warn("Merge stopped at PR #%d (%s): %v", halt.PR, halt.Branch, halt.Err)
	} else {
		splog.Warn("Merge stopped: %v", err)
	}
	if errors.Is(err, stackiterrors.ErrTimeout) {
		splog.Tip("Rerun with a longer --timeout, or with --no-wait once CI is green.")
	}
	splog.Info("Already merged PRs remain merged. Fix the issue and run merge to continue.")
}

func mergeSummary(result *MergeResult, halted bool) string {
	summary := summarize("merged", result.Merged)
	if halted {
		summary += " (halted)"
	}
	return summary
}
