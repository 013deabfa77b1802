package engine

import (
	"sort"

	stackiterrors "stackit.dev/stackcore/internal/errors"
)

const trunkIndex = -1

type graphNode struct {
	node     *Node
	parent   int
	children []int
	orphaned bool
	// base is the untracked branch a root sits on, "" for trunk
	base string
}

// resolveParent applies the effective parent rule shared by the graph and the
// engine: the recorded parent while it is trunk or an existing branch, trunk
// otherwise. orphaned reports the fallback.
func resolveParent(trunk, recorded string, branchExists func(string) bool) (parent string, orphaned bool) {
	if recorded == trunk {
		return trunk, false
	}
	if recorded == "" || !branchExists(recorded) {
		return trunk, true
	}
	return recorded, false
}

// Graph is the stack forest: a flat table of branches indexed by name, each
// pointing at its parent's index (trunkIndex for stack roots). Children are
// kept in alphabetical order.
type Graph struct {
	trunk string
	nodes []graphNode
	index map[string]int
	roots []int
}

// BuildGraph builds the forest from metadata records. A record whose parent is
// neither trunk nor another record becomes a root; it is orphaned when that
// parent branch no longer exists, otherwise it keeps the untracked parent as its base. A parent chain that loops is a CorruptGraphError.
func BuildGraph(trunk string, records []*Node, branchExists func(string) bool) (*Graph, error) {
	sorted := make([]*Node, 0, len(records))
	for _, n := range records {
		if n.Name != trunk {
			sorted = append(sorted, n)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	g := &Graph{
		trunk: trunk,
		nodes: make([]graphNode, len(sorted)),
		index: make(map[string]int, len(sorted)),
	}
	for i, n := range sorted {
		g.nodes[i] = graphNode{node: n, parent: trunkIndex}
		g.index[n.Name] = i
	}

	for i := range g.nodes {
		parent := g.nodes[i].node.Parent
		if idx, ok := g.index[parent]; ok {
			g.nodes[i].parent = idx
			continue
		}
		effective, orphaned := resolveParent(trunk, parent, branchExists)
		g.nodes[i].orphaned = orphaned
		if effective != trunk {
			g.nodes[i].base = effective
		}
	}

	for i := range g.nodes {
		if err := g.checkChain(i); err != nil {
			return nil, err
		}
	}

	for i := range g.nodes {
		if p := g.nodes[i].parent; p == trunkIndex {
			g.roots = append(g.roots, i)
		} else {
			g.nodes[p].children = append(g.nodes[p].children, i)
		}
	}
	return g, nil
}

func (g *Graph) checkChain(start int) error {
	seen := map[int]bool{}
	chain := []string{}
	for i := start; i != trunkIndex; i = g.nodes[i].parent {
		chain = append(chain, g.nodes[i].node.Name)
		if seen[i] {
			return stackiterrors.NewCorruptGraphError(g.nodes[start].node.Name, chain)
		}
		seen[i] = true
	}
	return nil
}

// Trunk returns the trunk branch name
func (g *Graph) Trunk() string {
	return g.trunk
}

// IsTrunk reports whether branch is trunk
func (g *Graph) IsTrunk(branch string) bool {
	return branch == g.trunk
}

// Has reports whether branch is tracked
func (g *Graph) Has(branch string) bool {
	_, ok := g.index[branch]
	return ok
}

// Node returns the record of a tracked branch, or nil
func (g *Graph) Node(branch string) *Node {
	if i, ok := g.index[branch]; ok {
		return g.nodes[i].node
	}
	return nil
}

// Branches returns every tracked branch, sorted
func (g *Graph) Branches() []string {
	names := make([]string, len(g.nodes))
	for i := range g.nodes {
		names[i] = g.nodes[i].node.Name
	}
	return names
}

// Parent returns the effective parent of branch: the tracked parent, the
// untracked branch a root sits on, otherwise trunk. It is "" for trunk or
// untracked branches.
func (g *Graph) Parent(branch string) string {
	i, ok := g.index[branch]
	if !ok {
		return ""
	}
	if p := g.nodes[i].parent; p != trunkIndex {
		return g.nodes[p].node.Name
	}
	if g.nodes[i].base != "" {
		return g.nodes[i].base
	}
	return g.trunk
}

// IsOrphaned reports whether branch's recorded parent no longer exists
func (g *Graph) IsOrphaned(branch string) bool {
	i, ok := g.index[branch]
	return ok && g.nodes[i].orphaned
}

// Children returns the direct children of branch; the children of trunk are the stack roots
func (g *Graph) Children(branch string) []string {
	if branch == g.trunk {
		return g.names(g.roots)
	}
	i, ok := g.index[branch]
	if !ok {
		return []string{}
	}
	return g.names(g.nodes[i].children)
}

// Roots returns the bottom branch of every stack, sorted
func (g *Graph) Roots() []string {
	return g.names(g.roots)
}

// Ancestors returns the branches below branch, bottom-most first, excluding trunk and branch
func (g *Graph) Ancestors(branch string) []string {
	i, ok := g.index[branch]
	if !ok {
		return []string{}
	}
	var chain []string
	for p := g.nodes[i].parent; p != trunkIndex; p = g.nodes[p].parent {
		chain = append(chain, g.nodes[p].node.Name)
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return append([]string{}, chain...)
}

// Descendants returns every branch above branch in pre-order, excluding branch.
// The descendants of trunk are all tracked branches.
func (g *Graph) Descendants(branch string) []string {
	var starts []int
	if branch == g.trunk {
		starts = g.roots
	} else if i, ok := g.index[branch]; ok {
		starts = g.nodes[i].children
	}
	out := []string{}
	for _, s := range starts {
		out = g.preOrder(s, out)
	}
	return out
}

// Depth is the number of branches between trunk and branch, inclusive of branch
func (g *Graph) Depth(branch string) int {
	if !g.Has(branch) {
		return 0
	}
	return len(g.Ancestors(branch)) + 1
}

// StackRoot returns the bottom-most non-trunk ancestor of branch, or branch itself for roots
func (g *Graph) StackRoot(branch string) string {
	if ancestors := g.Ancestors(branch); len(ancestors) > 0 {
		return ancestors[0]
	}
	return branch
}

// Stack returns ancestors, branch and descendants, bottom to top
func (g *Graph) Stack(branch string) []string {
	if !g.Has(branch) {
		return []string{}
	}
	out := g.Ancestors(branch)
	out = append(out, branch)
	return append(out, g.Descendants(branch)...)
}

// Scoped returns the branches a multi-branch operation started at branch visits, in pre-order
func (g *Graph) Scoped(branch string, scope Scope) []string {
	if scope == ScopeAll {
		return g.Descendants(g.trunk)
	}
	if branch == g.trunk {
		if scope == ScopeUpstack || scope == ScopeStack {
			return g.Descendants(g.trunk)
		}
		return []string{}
	}
	if !g.Has(branch) {
		return []string{}
	}
	switch scope {
	case ScopeOnly:
		return []string{branch}
	case ScopeUpstack:
		return append([]string{branch}, g.Descendants(branch)...)
	case ScopeDownstack:
		return append(g.Ancestors(branch), branch)
	default:
		return g.Stack(branch)
	}
}

// Listing orders branches for display: the stack containing current first
// (root, then descendants in pre-order), then the remaining stacks by root
// name, then trunk last
func (g *Graph) Listing(current string) []string {
	out := []string{}
	first := trunkIndex
	if g.Has(current) {
		first = g.index[g.StackRoot(current)]
		out = g.preOrder(first, out)
	}
	for _, r := range g.roots {
		if r != first {
			out = g.preOrder(r, out)
		}
	}
	return append(out, g.trunk)
}

func (g *Graph) preOrder(i int, out []string) []string {
	out = append(out, g.nodes[i].node.Name)
	for _, c := range g.nodes[i].children {
		out = g.preOrder(c, out)
	}
	return out
}

func (g *Graph) names(indexes []int) []string {
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		out[i] = g.nodes[idx].node.Name
	}
	return out
}
