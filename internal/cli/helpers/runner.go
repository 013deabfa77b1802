// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"context"

	"github.com/spf13/cobra"

	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

type splogKey struct{}

type runtimeKey struct{}

// WithSplog makes commands log through splog
func WithSplog(ctx context.Context, splog *output.Splog) context.Context {
	return context.WithValue(ctx, splogKey{}, splog)
}

// WithRuntime makes commands run against an already opened context instead
// of opening the repository in the working directory
func WithRuntime(ctx context.Context, rc *runtime.Context) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rc)
}

// Splog returns the logger stored in ctx, or a console logger
func Splog(ctx context.Context) *output.Splog {
	if ctx == nil {
		return output.NewSplog()
	}
	if rc, ok := ctx.Value(runtimeKey{}).(*runtime.Context); ok {
		return rc.Splog
	}
	if splog, ok := ctx.Value(splogKey{}).(*output.Splog); ok {
		return splog
	}
	return output.NewSplog()
}

// Run is a helper that provides a runtime context to a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if rc, ok := ctx.Value(runtimeKey{}).(*runtime.Context); ok {
		rc.Context = ctx
		return fn(rc)
	}
	rc, err := runtime.Open(ctx, ".", Splog(ctx))
	if err != nil {
		return err
	}
	return fn(rc)
}

// RepoRoot returns the root of the repository commands operate on
func RepoRoot(cmd *cobra.Command) (string, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if rc, ok := ctx.Value(runtimeKey{}).(*runtime.Context); ok {
		return rc.RepoRoot, nil
	}
	return runtime.RepoRoot(ctx, ".")
}
