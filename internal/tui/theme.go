package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"chunkdl/internal/config"
)

// ApplyTheme resolves the configured theme against the terminal and
// repaints the package's color palette. ThemeAdaptive asks termenv for the
// terminal's actual background rather than guessing from the platform or
// $TERM, since a dark-on-light user's own config wouldn't otherwise be
// detectable short of parsing escape-sequence replies.
func ApplyTheme(theme int) {
	dark := theme != config.ThemeLight
	if theme == config.ThemeAdaptive {
		dark = termenv.HasDarkBackground()
	}

	if dark {
		ColorPrimary = lipgloss.Color("#bd93f9")
		ColorSuccess = lipgloss.Color("#50fa7b")
		ColorError = lipgloss.Color("#ff5555")
		ColorText = lipgloss.Color("#f8f8f2")
		ColorSubtext = lipgloss.Color("#6272a4")
		ColorBorder = lipgloss.Color("#44475a")
	} else {
		ColorPrimary = lipgloss.Color("#8839ef")
		ColorSuccess = lipgloss.Color("#40a02b")
		ColorError = lipgloss.Color("#d20f39")
		ColorText = lipgloss.Color("#4c4f69")
		ColorSubtext = lipgloss.Color("#6c6f85")
		ColorBorder = lipgloss.Color("#9ca0b0")
	}

	rebuildStyles()
}
