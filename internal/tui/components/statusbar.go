package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/gburn/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. left carries key hints,
// middle an optional compact indicator and right a status message.
func RenderStatusBar(width int, middle, right string, busy bool) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := base.Render(" [?]help  [+/-]top-up  [r]efresh  [q]uit ")
	if middle != "" {
		left += base.Render(" ") + middle
	}
	if busy {
		right = accent.Render("saving… ") + base.Render(right)
	} else if right != "" {
		right = base.Render(right + " ")
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(
		left + lipgloss.NewStyle().Background(t.Surface).Width(padding).Render("") + right)
}
