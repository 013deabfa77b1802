package output

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ListingRow is one branch of the stack listing
type ListingRow struct {
	Name         string
	Depth        int
	Current      bool
	Trunk        bool
	NeedsRestack bool
	Orphaned     bool
	AheadBehind  string
	PR           string
}

// ListingRenderer formats the stack listing for a terminal
type ListingRenderer struct {
	renderer *lipgloss.Renderer
}

// NewListingRenderer creates a renderer that picks its color profile from w
func NewListingRenderer(w io.Writer) *ListingRenderer {
	return &ListingRenderer{renderer: lipgloss.NewRenderer(w)}
}

// NewListingRendererWith wraps an existing lipgloss renderer
func NewListingRendererWith(r *lipgloss.Renderer) *ListingRenderer {
	return &ListingRenderer{renderer: r}
}

// Render returns one line per row, indented by stack depth
func (r *ListingRenderer) Render(rows []ListingRow) string {
	dim := r.renderer.NewStyle().Faint(true)
	warn := r.renderer.NewStyle().Foreground(lipgloss.Color("3"))
	bad := r.renderer.NewStyle().Foreground(lipgloss.Color("1"))

	var b strings.Builder
	for _, row := range rows {
		name := r.renderer.NewStyle().Foreground(depthColor(row.Depth))
		glyph := "◯"
		if row.Current {
			glyph = "◉"
			name = name.Bold(true)
		}

		indent := 0
		if row.Depth > 1 {
			indent = row.Depth - 1
		}
		b.WriteString(dim.Render(strings.Repeat("│ ", indent)))
		b.WriteString(name.Render(glyph + " " + row.Name))

		if row.PR != "" {
			b.WriteString(" " + dim.Render(row.PR))
		}
		if !row.Trunk && row.AheadBehind != "" {
			b.WriteString(" " + dim.Render(row.AheadBehind))
		}
		if row.Orphaned {
			b.WriteString(" " + bad.Render("(parent missing)"))
		}
		if row.NeedsRestack {
			b.WriteString(" " + warn.Render("(needs restack)"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
