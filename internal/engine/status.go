package engine

import (
	"context"

	"github.com/sourcegraph/conc/iter"
)

// Status returns one row per branch in listing order. Ahead/behind counts
// are computed concurrently; failures show as unknown. Nothing is written.
func (e *Engine) Status(ctx context.Context) ([]BranchStatus, error) {
	graph, err := e.Graph(ctx)
	if err != nil {
		return nil, err
	}
	current := e.CurrentBranch(ctx)

	names := graph.Listing(current)
	rows := make([]BranchStatus, 0, len(names))
	for _, name := range names {
		row := BranchStatus{
			Name:      name,
			IsCurrent: name == current,
			IsTrunk:   graph.IsTrunk(name),
		}
		if !row.IsTrunk {
			node := graph.Node(name)
			row.Parent = graph.Parent(name)
			row.Depth = graph.Depth(name)
			row.Orphaned = graph.IsOrphaned(name)
			row.PR = node.PR
			parentHead, err := e.repo.HeadOf(ctx, row.Parent)
			row.NeedsRestack = row.Orphaned || err != nil || parentHead != node.ParentRevision
		}
		rows = append(rows, row)
	}

	iter.ForEach(rows, func(row *BranchStatus) {
		if !row.IsTrunk {
			row.AheadBehind = e.repo.AheadBehind(ctx, row.Name, row.Parent)
		}
	})
	return rows, nil
}
