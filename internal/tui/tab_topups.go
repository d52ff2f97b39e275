package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tui/components"
	"github.com/theirongolddev/gburn/internal/tui/theme"
)

func (a App) renderTopUpsTab(cw int) string {
	t := theme.Active
	st := a.snap.State
	m := a.snap.Metrics

	cards := []components.Metric{
		{Label: "Purchased", Value: fmt.Sprintf("%d blocks", st.PurchasedBlocks), Note: cli.FormatHours(m.TopUpHours) + " added", Color: t.AccentBright},
		{Label: "Top-up spend", Value: cli.FormatCurrency(float64(st.PurchasedBlocks) * m.Plan.TopUpPrice), Note: cli.FormatCurrency(m.Plan.TopUpPrice) + " per block"},
		{Label: "Period total", Value: cli.FormatCurrency(m.TotalCost), Note: "plan + top-ups", Color: t.GreenBright},
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	blockStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var body strings.Builder
	body.WriteString(labelStyle.Render(fmt.Sprintf("Each block adds %dh for %s. ", model.TopUpHours, cli.FormatCurrency(m.Plan.TopUpPrice))))
	if st.ClearTopUpsOnRenewal {
		body.WriteString(labelStyle.Render("Blocks are cleared at renewal."))
	} else {
		body.WriteString(labelStyle.Render("Blocks carry over at renewal."))
	}
	body.WriteString("\n\n")

	innerW := components.CardInnerWidth(cw)
	shown := min(st.PurchasedBlocks, max(innerW/2, 1))
	if shown > 0 {
		body.WriteString(blockStyle.Render(strings.TrimSpace(strings.Repeat("■ ", shown))))
		if shown < st.PurchasedBlocks {
			body.WriteString(labelStyle.Render(fmt.Sprintf(" +%d", st.PurchasedBlocks-shown)))
		}
	} else {
		body.WriteString(labelStyle.Render("No top-ups this period."))
	}
	body.WriteString("\n\n")
	body.WriteString(keyStyle.Render("[+]"))
	body.WriteString(valueStyle.Render(" add block   "))
	body.WriteString(keyStyle.Render("[-]"))
	body.WriteString(valueStyle.Render(" remove block"))

	b.WriteString(components.ContentCard("Top-ups", body.String(), cw))
	return b.String()
}
