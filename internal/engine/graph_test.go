package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/engine"
	stackiterrors "stackit.dev/stackcore/internal/errors"
)

func nodes(pairs ...string) []*engine.Node {
	out := make([]*engine.Node, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &engine.Node{Name: pairs[i], Parent: pairs[i+1]})
	}
	return out
}

func existing(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(b string) bool { return set[b] }
}

func TestGraphListing(t *testing.T) {
	records := nodes(
		"validation", "auth",
		"hotfix", "main",
		"login", "auth",
		"auth", "main",
	)
	graph, err := engine.BuildGraph("main", records, existing("main", "auth", "login", "validation", "hotfix"))
	require.NoError(t, err)

	t.Run("current stack first then other stacks then trunk", func(t *testing.T) {
		require.Equal(t, []string{"auth", "login", "validation", "hotfix", "main"}, graph.Listing("login"))
		require.Equal(t, []string{"hotfix", "auth", "login", "validation", "main"}, graph.Listing("hotfix"))
	})

	t.Run("trunk or untracked current lists stacks alphabetically", func(t *testing.T) {
		expected := []string{"auth", "login", "validation", "hotfix", "main"}
		require.Equal(t, expected, graph.Listing("main"))
		require.Equal(t, expected, graph.Listing("scratch"))
	})

	t.Run("children are alphabetical", func(t *testing.T) {
		require.Equal(t, []string{"login", "validation"}, graph.Children("auth"))
		require.Equal(t, []string{"auth", "hotfix"}, graph.Children("main"))
		require.Equal(t, []string{"auth", "hotfix"}, graph.Roots())
		require.Empty(t, graph.Children("login"))
	})
}

func TestGraphQueries(t *testing.T) {
	records := nodes(
		"a", "main",
		"b", "a",
		"c", "b",
		"d", "a",
	)
	graph, err := engine.BuildGraph("main", records, existing("main", "a", "b", "c", "d"))
	require.NoError(t, err)

	require.Equal(t, "main", graph.Parent("a"))
	require.Equal(t, "b", graph.Parent("c"))
	require.Equal(t, "", graph.Parent("main"))
	require.Equal(t, []string{"a", "b"}, graph.Ancestors("c"))
	require.Empty(t, graph.Ancestors("a"))
	require.Equal(t, []string{"b", "c", "d"}, graph.Descendants("a"))
	require.Equal(t, []string{"a", "b", "c", "d"}, graph.Descendants("main"))
	require.Equal(t, "a", graph.StackRoot("c"))
	require.Equal(t, 3, graph.Depth("c"))
	require.Equal(t, 0, graph.Depth("main"))

	t.Run("scopes", func(t *testing.T) {
		require.Equal(t, []string{"b"}, graph.Scoped("b", engine.ScopeOnly))
		require.Equal(t, []string{"b", "c"}, graph.Scoped("b", engine.ScopeUpstack))
		require.Equal(t, []string{"a", "b"}, graph.Scoped("b", engine.ScopeDownstack))
		require.Equal(t, []string{"a", "b", "c"}, graph.Scoped("b", engine.ScopeStack))
		require.Equal(t, []string{"a", "b", "c", "d"}, graph.Scoped("a", engine.ScopeStack))
		require.Equal(t, []string{"a", "b", "c", "d"}, graph.Scoped("c", engine.ScopeAll))
		require.Equal(t, []string{"a", "b", "c", "d"}, graph.Scoped("main", engine.ScopeUpstack))
		require.Empty(t, graph.Scoped("untracked", engine.ScopeStack))
	})
}

func TestGraphMissingParents(t *testing.T) {
	records := nodes(
		"orphan", "deleted",
		"loose", "untracked",
		"child", "orphan",
	)
	graph, err := engine.BuildGraph("main", records, existing("main", "orphan", "loose", "untracked", "child"))
	require.NoError(t, err)

	require.True(t, graph.IsOrphaned("orphan"))
	require.Equal(t, "main", graph.Parent("orphan"))
	require.False(t, graph.IsOrphaned("loose"))
	require.Equal(t, "untracked", graph.Parent("loose"))
	require.Equal(t, 1, graph.Depth("loose"))
	require.False(t, graph.IsOrphaned("child"))
	require.Equal(t, []string{"loose", "orphan", "child", "main"}, graph.Listing(""))
}

func TestGraphCycle(t *testing.T) {
	records := nodes(
		"a", "b",
		"b", "c",
		"c", "a",
		"ok", "main",
	)
	_, err := engine.BuildGraph("main", records, existing("main", "a", "b", "c", "ok"))
	require.ErrorIs(t, err, stackiterrors.ErrCorruptGraph)

	var corrupt *stackiterrors.CorruptGraphError
	require.True(t, errors.As(err, &corrupt))
	require.Equal(t, "a", corrupt.Branch)
	require.Equal(t, []string{"a", "b", "c", "a"}, corrupt.Chain)

	_, err = engine.BuildGraph("main", nodes("self", "self"), existing("main", "self"))
	require.ErrorIs(t, err, stackiterrors.ErrCorruptGraph)
}
