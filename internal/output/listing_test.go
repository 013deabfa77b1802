package output_test

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackcore/internal/output"
)

func TestListingRenderer(t *testing.T) {
	renderer := lipgloss.NewRenderer(&bytes.Buffer{})
	renderer.SetColorProfile(termenv.Ascii)
	listing := output.NewListingRendererWith(renderer)

	rows := []output.ListingRow{
		{Name: "auth", Depth: 1, AheadBehind: "+1/-0", PR: "#12"},
		{Name: "login", Depth: 2, Current: true, AheadBehind: "+2/-1", NeedsRestack: true},
		{Name: "hotfix", Depth: 1, Orphaned: true, NeedsRestack: true, AheadBehind: "-"},
		{Name: "main", Trunk: true},
	}

	expected := "" +
		"◯ auth #12 +1/-0\n" +
		"│ ◉ login +2/-1 (needs restack)\n" +
		"◯ hotfix - (parent missing) (needs restack)\n" +
		"◯ main\n"
	require.Equal(t, expected, listing.Render(rows))
}
