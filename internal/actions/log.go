package actions

import (
	"fmt"
	"io"

	"stackit.dev/stackcore/internal/output"
	"stackit.dev/stackcore/internal/runtime"
)

// LogAction writes the stack listing: the current stack first, then the
// other stacks, then trunk. It reads only.
func LogAction(ctx *runtime.Context, w io.Writer) error {
	rows, err := ctx.Engine.Status(ctx)
	if err != nil {
		return err
	}

	listing := make([]output.ListingRow, 0, len(rows))
	for _, s := range rows {
		row := output.ListingRow{
			Name:         s.Name,
			Depth:        s.Depth,
			Current:      s.IsCurrent,
			Trunk:        s.IsTrunk,
			NeedsRestack: s.NeedsRestack,
			Orphaned:     s.Orphaned,
		}
		if !s.IsTrunk {
			row.AheadBehind = s.AheadBehind.String()
		}
		if s.PR != nil && s.PR.Number > 0 {
			row.PR = fmt.Sprintf("#%d %s", s.PR.Number, s.PR.State)
		}
		listing = append(listing, row)
	}

	_, err = io.WriteString(w, output.NewListingRenderer(w).Render(listing))
	if open, ok := openOperation(ctx); ok && err == nil {
		ctx.Splog.Warn("Operation %s (%s) is paused on a conflict.", open.OpID, open.Kind)
	}
	return err
}
