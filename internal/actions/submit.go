package actions

import (
	"fmt"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// SubmitOptions contains options for the submit command
type SubmitOptions struct {
	// Branch defaults to the current branch
	Branch string
	// Scope defaults to the whole stack
	Scope engine.Scope
}

// SubmitReport describes a submit
type SubmitReport struct {
	Pushed  []string
	Receipt *ops.Receipt
}

// SubmitAction force-pushes the branches in scope and opens or retargets a
// pull request for each. When a branch fails, what was pushed before it is
// committed and the error is returned.
func SubmitAction(ctx *runtime.Context, opts SubmitOptions) (*SubmitReport, error) {
	eng := ctx.Engine

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
	branches := graph.Scoped(branch, scope)
	if len(branches) == 0 {
		ctx.Splog.Info("No branches to submit.")
		return &SubmitReport{}, nil
	}

	forge, err := ctx.GitHub()
	if err != nil {
		return nil, err
	}

	tx, err := ctx.Ops.Begin(ctx, ops.KindSubmit, eng.Trunk(), branches...)
	if err != nil {
		return nil, err
	}
	report := &SubmitReport{}
	report.Pushed, err = submitBranches(ctx, tx, forge, branches)
	if err != nil {
		return report, commitPartial(ctx, tx, current, summarize("submitted", report.Pushed), err)
	}
	report.Receipt, err = finish(ctx, tx, current, summarize("submitted", report.Pushed))
	return report, err
}

// submitBranches pushes each branch whose remote head differs and records the
// remote's prior head in the transaction first, then syncs its pull request
func submitBranches(ctx *runtime.Context, tx *ops.Tx, forge github.Client, branches []string) ([]string, error) {
	eng := ctx.Engine
	repo := eng.Repo()
	splog := ctx.Splog
	remote := eng.Remote()

	graph, err := eng.Graph(ctx)
	if err != nil {
		return nil, err
	}

	var pushed []string
	for _, branch := range branches {
		if eng.IsTrunk(branch) || !graph.Has(branch) {
			continue
		}
		if needs, err := eng.NeedsRestack(ctx, branch); err == nil && needs {
			splog.Warn("%s needs a restack; its pull request may show unrelated changes.", output.ColorBranchName(branch, false))
		}

		local, err := repo.HeadOf(ctx, branch)
		if err != nil {
			return pushed, err
		}
		prior, _, err := repo.RemoteHeadOf(ctx, remote, branch)
		if err != nil {
			return pushed, err
		}
		if prior != local {
			if err := tx.MarkForcePushed(ctx, branch, remote, prior); err != nil {
				return pushed, err
			}
			if err := repo.ForcePush(ctx, remote, branch); err != nil {
				return pushed, fmt.Errorf("failed to push %s: %w", branch, err)
			}
			pushed = append(pushed, branch)
			splog.Info("Pushed %s.", output.ColorBranchName(branch, false))
		} else {
			splog.Debug("%s is already up to date on %s", branch, remote)
		}

		parent := graph.Parent(branch)
		pr, err := forge.CreateOrUpdatePR(ctx, branch, parent, prTitle(ctx, branch, parent))
		if err != nil {
			return pushed, err
		}
		ref := &engine.PRRef{Number: pr.Number, State: string(pr.State), Provider: "github", Base: pr.Base}
		if err := eng.Store().SetPR(ctx, branch, ref); err != nil {
			return pushed, err
		}
		splog.Info("%s: #%d %s", output.ColorBranchName(branch, false), pr.Number, pr.URL)
	}
	return pushed, nil
}

// prTitle is the subject of the branch's first commit, or the branch name
func prTitle(ctx *runtime.Context, branch, parent string) string {
	repo := ctx.Engine.Repo()
	commits, err := repo.CommitsBetween(ctx, parent, branch)
	if err != nil || len(commits) == 0 {
		return branch
	}
	subject, err := repo.CommitSubject(ctx, commits[0])
	if err != nil || subject == "" {
		return branch
	}
	return subject
}
