package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3B4252")).
			Padding(0, 1)

	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EBCB8B"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// swatches maps zone display colors to terminal colors
var swatches = map[string]lipgloss.Color{
	"gray":  lipgloss.Color("245"),
	"blue":  lipgloss.Color("#5E81AC"),
	"green": lipgloss.Color("#A3BE8C"),
}

func swatch(color string) string {
	c, ok := swatches[color]
	if !ok {
		c = swatches["gray"]
	}
	return lipgloss.NewStyle().Foreground(c).Render("■")
}
