package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// stackColors is the branch palette, cycled by stack depth
var stackColors = [][3]int{
	{76, 203, 241},  // light blue
	{77, 202, 125},  // green
	{110, 173, 38},  // dark green
	{245, 200, 0},   // yellow
	{248, 144, 72},  // orange
	{244, 98, 81},   // red
	{235, 130, 188}, // pink
	{159, 131, 228}, // purple
	{80, 132, 243},  // blue
}

func depthColor(depth int) lipgloss.Color {
	c := stackColors[depth%len(stackColors)]
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

var (
	currentBranchStyle = lipgloss.NewStyle().Foreground(depthColor(0)).Bold(true)
	branchStyle        = lipgloss.NewStyle().Foreground(depthColor(0))
	redStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#f46251"))
	yellowStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#f5c800"))
	cyanStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ccbf1"))
)

// ColorBranchName styles a branch name, emphasizing the checked-out branch
func ColorBranchName(name string, current bool) string {
	if current {
		return currentBranchStyle.Render(name)
	}
	return branchStyle.Render(name)
}

// ColorRed renders text in red
func ColorRed(text string) string {
	return redStyle.Render(text)
}

// ColorYellow renders text in yellow
func ColorYellow(text string) string {
	return yellowStyle.Render(text)
}

// ColorCyan renders text in cyan; used for commands the user can run
func ColorCyan(text string) string {
	return cyanStyle.Render(text)
}
