package cli_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/cli"
	"stackit.dev/stackcore/internal/cli/helpers"
	"stackit.dev/stackcore/internal/runtime"
	"stackit.dev/stackcore/testhelpers"
)

type harness struct {
	scene *testhelpers.Scene
	ctx   *runtime.Context
	log   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("STACKIT_NON_INTERACTIVE", "1")
	scene := testhelpers.NewScene(t, testhelpers.StackSetup("a", "main", "b", "a"))
	log := &bytes.Buffer{}
	return &harness{scene: scene, ctx: testhelpers.NewTestContextWithWriter(t, scene, nil, log), log: log}
}

// run executes the root command with args and returns what it wrote to stdout
func (h *harness) run(args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := cli.NewRootCmd("test")
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	err := cmd.ExecuteContext(helpers.WithRuntime(context.Background(), h.ctx))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Run("log lists the stack", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run("log")
		require.NoError(t, err)
		require.Contains(t, out, "a")
		require.Contains(t, out, "b")
		require.Contains(t, out, "main")
	})

	t.Run("restack scope flags are mutually exclusive", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("restack", "--only", "--upstack")
		require.Error(t, err)

		require.NoError(t, h.scene.Repo.AdvanceBranch("a", "a 2", "a2"))
		_, err = h.run("restack", "--upstack")
		require.NoError(t, err)
		require.True(t, h.scene.Repo.IsAncestor("a", "b"))
	})

	t.Run("move requires --onto", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("move")
		require.Error(t, err)

		_, err = h.run("move", "--source", "b", "--onto", "main")
		require.NoError(t, err)
		parent, err := h.ctx.Engine.ParentOf(h.ctx, "b")
		require.NoError(t, err)
		require.Equal(t, "main", parent)
	})

	t.Run("undo and redo round trip through ops", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("move", "--source", "b", "--onto", "main")
		require.NoError(t, err)

		_, err = h.run("undo", "--yes")
		require.NoError(t, err)
		parent, err := h.ctx.Engine.ParentOf(h.ctx, "b")
		require.NoError(t, err)
		require.Equal(t, "a", parent)

		_, err = h.run("redo")
		require.NoError(t, err)
		parent, err = h.ctx.Engine.ParentOf(h.ctx, "b")
		require.NoError(t, err)
		require.Equal(t, "main", parent)

		_, err = h.run("ops")
		require.NoError(t, err)
		require.Contains(t, h.log.String(), "reparent")
	})

	t.Run("split parses points", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.scene.Repo.AdvanceBranch("b", "b 2", "b2"))

		_, err := h.run("split", "--at", "one:x")
		require.Error(t, err)

		_, err = h.run("split", "--at", "1:b-api", "--at", "2:b-ui")
		require.NoError(t, err)
		graph, err := h.ctx.Engine.Graph(h.ctx)
		require.NoError(t, err)
		require.Equal(t, "b-api", graph.Parent("b-ui"))
		require.False(t, graph.Has("b"))
	})

	t.Run("trunk shows and sets the trunk", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run("trunk")
		require.NoError(t, err)
		require.Equal(t, "main\n", out)

		_, err = h.run("trunk", "develop")
		require.NoError(t, err)
		out, err = h.run("trunk")
		require.NoError(t, err)
		require.Equal(t, "develop\n", out)
	})

	t.Run("merge rejects an unknown method before opening the repository", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("merge", "--method", "octopus")
		require.Error(t, err)
	})
}
