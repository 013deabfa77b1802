package testhelpers

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"

	"stackit.dev/stackcore/internal/github"
	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// NewTestContext opens a runtime context on the scene's repository with
// default config, receipts on disk and forge as the GitHub client (may be nil)
func NewTestContext(t *testing.T, scene *Scene, forge github.Client) *runtime.Context {
	t.Helper()
	return NewTestContextWithWriter(t, scene, forge, io.Discard)
}

// NewTestContextWithWriter is NewTestContext with output written to w
func NewTestContextWithWriter(t *testing.T, scene *Scene, forge github.Client, w io.Writer) *runtime.Context {
	t.Helper()
	ctx, err := runtime.OpenWithFs(context.Background(), scene.Dir, afero.NewOsFs(), output.NewSplogWithWriter(w))
	if err != nil {
		t.Fatalf("Failed to open runtime context: %v", err)
	}
	if forge != nil {
		ctx.Forge = forge
	}
	return ctx
}
