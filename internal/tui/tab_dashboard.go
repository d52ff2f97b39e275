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

func (a App) renderDashboardTab(cw int) string {
	t := theme.Active
	st := a.snap.State
	m := a.snap.Metrics
	var b strings.Builder

	// Row 1: metric cards
	balanceNote := ""
	if st.ExcludeRollover {
		balanceNote = "effective " + cli.FormatHours(m.EffectiveHours)
	}
	daysNote := "no renewal date"
	if st.RenewalDate != "" {
		daysNote = "renews " + cli.FormatRenewalDate(st.RenewalDate)
	}
	budgetColor := t.TextPrimary
	if m.DaysRemaining > 0 && m.BudgetPerDay < 1 {
		budgetColor = t.Orange
	}

	cards := []components.Metric{
		{Label: "Balance", Value: cli.FormatHours(m.TotalCurrentHours), Note: balanceNote, Color: t.BlueBright},
		{Label: "Days left", Value: cli.FormatDays(m.DaysRemaining), Note: daysNote},
		{Label: "Daily budget", Value: cli.FormatBudget(m.BudgetPerDay), Color: budgetColor},
		{Label: "Est. monthly", Value: cli.FormatCurrency(m.EstimatedMonthlyCost), Note: cli.FormatCurrency(m.TotalCost) + " this period", Color: t.GreenBright},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(cards[:2], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(cards[2:], cw))
	} else {
		b.WriteString(components.MetricCardRow(cards, cw))
	}
	b.WriteString("\n")

	// Row 2: allowance bars
	innerW := components.CardInnerWidth(cw)
	labelW := 10
	barW := max(innerW-labelW-30, 10)
	allowance := a.allowanceHours()

	var bars strings.Builder
	bars.WriteString(components.AllowanceBar("Balance", safeRatio(m.TotalCurrentHours, allowance),
		cli.FormatHours(m.TotalCurrentHours)+" of "+cli.FormatHours(allowance), labelW, barW))
	if st.ExcludeRollover {
		bars.WriteString("\n")
		bars.WriteString(components.AllowanceBar("Effective", safeRatio(m.EffectiveHours, allowance),
			fmt.Sprintf("%s after %dh rollover", cli.FormatHours(m.EffectiveHours), model.RolloverHours), labelW, barW))
	}
	b.WriteString(components.ContentCard("Allowance", bars.String(), cw))
	b.WriteString("\n")

	// Row 3: plan and renewal side by side
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	planStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.Plan.Color)).Background(t.Surface).Bold(true)

	row := func(sb *strings.Builder, label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", label)))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}

	var plan strings.Builder
	plan.WriteString(planStyle.Render(m.Plan.Name))
	plan.WriteString(labelStyle.Render(" · " + string(st.BillingCycle)))
	plan.WriteString("\n")
	row(&plan, "Plan price", cli.FormatCurrency(m.Plan.PriceFor(st.BillingCycle)))
	row(&plan, "Top-ups", fmt.Sprintf("%d × %s", st.PurchasedBlocks, cli.FormatCurrency(m.Plan.TopUpPrice)))
	row(&plan, "Total cost", cli.FormatCurrency(m.TotalCost))

	var renewal strings.Builder
	row(&renewal, "Next renewal", cli.FormatRenewalDate(st.RenewalDate))
	row(&renewal, "Auto renew", cli.OnOff(st.AutoRenew))
	row(&renewal, "Reset balance", cli.OnOff(st.ResetBalanceOnRenewal))
	row(&renewal, "Rollover", cli.OnOff(st.IncludeRollover))
	row(&renewal, "Clear top-ups", cli.OnOff(st.ClearTopUpsOnRenewal))

	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Plan", strings.TrimSuffix(plan.String(), "\n"), halves[0]),
		components.ContentCard("Renewal", strings.TrimSuffix(renewal.String(), "\n"), halves[1]),
	}))

	return b.String()
}

func safeRatio(v, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return v / total
}
