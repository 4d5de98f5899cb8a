package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors. Defaults assume a dark terminal; ApplyTheme overrides these
	// at startup once the configured/resolved theme is known.
	ColorPrimary = lipgloss.Color("#bd93f9") // Dracula Purple
	ColorSuccess = lipgloss.Color("#50fa7b") // Dracula Green
	ColorError   = lipgloss.Color("#ff5555") // Dracula Red
	ColorText    = lipgloss.Color("#f8f8f2") // Dracula Foreground
	ColorSubtext = lipgloss.Color("#6272a4") // Dracula Comment
	ColorBorder  = lipgloss.Color("#44475a") // Dracula Selection

	AppStyle   lipgloss.Style
	TitleStyle lipgloss.Style
	PanelStyle lipgloss.Style
	ItemStyle  lipgloss.Style
	StatsStyle lipgloss.Style
)

func init() {
	rebuildStyles()
}

// rebuildStyles recomputes the derived lipgloss styles from the current
// Color* values. Called once at package init and again by ApplyTheme
// whenever the resolved palette changes.
func rebuildStyles() {
	AppStyle = lipgloss.NewStyle().
		Padding(DefaultPaddingX, 2).
		Foreground(ColorText)

	TitleStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(DefaultPaddingY, DefaultPaddingX).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(DefaultPaddingY, DefaultPaddingX)

	ItemStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	StatsStyle = lipgloss.NewStyle().
		Foreground(ColorSubtext).
		Padding(DefaultPaddingY, DefaultPaddingX)
}
