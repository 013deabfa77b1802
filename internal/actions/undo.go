package actions

import (
	"fmt"

	"stackit.dev/stackcore/internal/ops"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/internal/tui"
)

// UndoOptions contains options for the undo command
type UndoOptions struct {
	// OpID defaults to the newest operation that has not been undone
	OpID string
	// Remote also restores force-pushed branches on the remote
	Remote bool
	// Confirm asks before anything is restored
	Confirm bool
}

// UndoAction restores every branch an operation touched to its prior state.
// A rebase left in progress is aborted first.
func UndoAction(ctx *runtime.Context, opts UndoOptions) (*ops.Receipt, error) {
	if opts.Confirm {
		ok, err := confirmUndo(ctx, opts)
		if err != nil || !ok {
			return nil, err
		}
	}
	receipt, err := ctx.Ops.Undo(ctx, opts.OpID, opts.Remote)
	if err != nil {
		return receipt, err
	}
	ctx.Splog.Info("Undid %s operation %s (%d branch(es) restored).", receipt.Kind, receipt.OpID, len(receipt.Entries))
	return receipt, nil
}

func confirmUndo(ctx *runtime.Context, opts UndoOptions) (bool, error) {
	var receipt *ops.Receipt
	var err error
	if opts.OpID == "" {
		receipt, err = ctx.Ops.Latest()
	} else {
		receipt, err = ctx.Ops.Store().LoadReceipt(opts.OpID)
	}
	if err != nil {
		return false, err
	}
	ctx.Splog.Info("%s (%s): %s", receipt.OpID, receipt.Kind, receipt.Summary)
	for _, e := range receipt.Entries {
		ctx.Splog.Info("  %s", e.Branch)
	}
	message := "Restore these branches?"
	if opts.Remote {
		message = "Restore these branches, including force-pushed remote branches?"
	}
	confirmed, err := tui.PromptConfirm(message, false)
	if err != nil {
		return false, fmt.Errorf("confirmation canceled: %w", err)
	}
	if !confirmed {
		ctx.Splog.Info("Undo canceled.")
	}
	return confirmed, nil
}

// RedoAction re-applies the operation reverted by the preceding undo
func RedoAction(ctx *runtime.Context, remote bool) (*ops.Receipt, error) {
	receipt, err := ctx.Ops.Redo(ctx, remote)
	if err != nil {
		return receipt, err
	}
	ctx.Splog.Info("Redid %s operation %s.", receipt.Kind, receipt.OpID)
	return receipt, nil
}

// OpsAction lists recorded operations, newest first, noting a paused one
func OpsAction(ctx *runtime.Context) ([]*ops.Receipt, error) {
	if open, ok := openOperation(ctx); ok {
		ctx.Splog.Warn("Operation %s (%s) is paused; run 'stackit continue' or 'stackit abort'.", open.OpID, open.Kind)
	}
	receipts, err := ctx.Ops.List()
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		ctx.Splog.Info("No operations recorded.")
		return receipts, nil
	}
	for _, r := range receipts {
		status := ""
		if r.Undone {
			status = " (undone)"
		}
		ctx.Splog.Page(fmt.Sprintf("%s  %-8s  %s%s\n", r.OpID, r.Kind, r.Summary, status))
	}
	return receipts, nil
}
