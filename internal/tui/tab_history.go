package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/tui/components"
	"github.com/theirongolddev/gburn/internal/tui/theme"
)

func (a App) renderHistoryTab(cw int) string {
	t := theme.Active

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(a.history) == 0 {
		return components.ContentCard("Renewal History",
			mutedStyle.Render("No renewals recorded yet."), cw)
	}

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	format := "%-17s %-17s %12s %12s %8s"
	var body strings.Builder
	body.WriteString(headStyle.Render(fmt.Sprintf(format, "Applied", "New renewal", "Balance", "Was", "Top-ups")))
	body.WriteString("\n")
	for _, ev := range a.history {
		body.WriteString(rowStyle.Render(fmt.Sprintf(format,
			ev.AppliedAt.Local().Format("2006-01-02 15:04"),
			ev.NewDate,
			cli.FormatHours(ev.NewBalance.TotalHours()),
			cli.FormatHours(ev.PreviousBalance.TotalHours()),
			fmt.Sprintf("%d→%d", ev.PreviousBlocks, ev.NewBlocks),
		)))
		body.WriteString("\n")
	}

	// Oldest on the left.
	carried := make([]float64, len(a.history))
	for i, ev := range a.history {
		carried[len(a.history)-1-i] = ev.PreviousBalance.TotalHours()
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Renewal History", strings.TrimSuffix(body.String(), "\n"), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Unused hours at renewal",
		components.Sparkline(carried, t.Blue)+mutedStyle.Render(fmt.Sprintf("  last %d cycles", len(carried))), cw))
	return b.String()
}
