package tui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
	"github.com/theirongolddev/gburn/internal/tui/components"
	"github.com/theirongolddev/gburn/internal/tui/theme"
)

const (
	settingsFieldHours = iota
	settingsFieldMinutes
	settingsFieldPlan
	settingsFieldCycle
	settingsFieldRenewalDate
	settingsFieldAutoRenew
	settingsFieldResetBalance
	settingsFieldIncludeRollover
	settingsFieldClearTopUps
	settingsFieldExcludeRollover
	settingsFieldTheme
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 30
	return ti
}

func isTextField(field int) bool {
	switch field {
	case settingsFieldHours, settingsFieldMinutes, settingsFieldRenewalDate:
		return true
	}
	return false
}

// settingsActivate edits text fields and toggles or cycles the rest.
func (a App) settingsActivate() (tea.Model, tea.Cmd) {
	if isTextField(a.settings.cursor) {
		return a.settingsStartEdit()
	}

	st := a.snap.State
	a.settings.saved = false

	switch a.settings.cursor {
	case settingsFieldPlan:
		plans := a.tracker.Plans()
		return a.edit(tracker.SetPlan(plans, nextInCycle(plans.Keys(), config.NormalizePlanKey(st.Plan)), ""))
	case settingsFieldCycle:
		next := model.Yearly
		if st.BillingCycle == model.Yearly {
			next = model.Monthly
		}
		return a.edit(tracker.SetPlan(a.tracker.Plans(), a.snap.Metrics.Plan.Key, string(next)))
	case settingsFieldAutoRenew:
		v := !st.AutoRenew
		return a.edit(tracker.SetRenewalFlags(tracker.RenewalFlags{AutoRenew: &v}))
	case settingsFieldResetBalance:
		v := !st.ResetBalanceOnRenewal
		return a.edit(tracker.SetRenewalFlags(tracker.RenewalFlags{ResetBalanceOnRenewal: &v}))
	case settingsFieldIncludeRollover:
		v := !st.IncludeRollover
		return a.edit(tracker.SetRenewalFlags(tracker.RenewalFlags{IncludeRollover: &v}))
	case settingsFieldClearTopUps:
		v := !st.ClearTopUpsOnRenewal
		return a.edit(tracker.SetRenewalFlags(tracker.RenewalFlags{ClearTopUpsOnRenewal: &v}))
	case settingsFieldExcludeRollover:
		return a.edit(tracker.SetExcludeRollover(!st.ExcludeRollover))
	case settingsFieldTheme:
		a.cfg.Appearance.Theme = nextInCycle(theme.Names(), a.cfg.Appearance.Theme)
		theme.SetActive(a.cfg.Appearance.Theme)
		a.settings.saveErr = config.Save(a.cfg)
		a.settings.saved = a.settings.saveErr == nil
	}
	return a, nil
}

// nextInCycle returns the item after cur, wrapping around. Unknown cur yields the first item.
func nextInCycle(items []string, cur string) string {
	if len(items) == 0 {
		return cur
	}
	i := slices.Index(items, cur)
	return items[(i+1)%len(items)]
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	st := a.snap.State
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldHours:
		ti.Placeholder = "100"
		ti.SetValue(strconv.FormatFloat(st.Balance.Hours, 'f', -1, 64))
	case settingsFieldMinutes:
		ti.Placeholder = "0"
		ti.SetValue(strconv.FormatFloat(st.Balance.Minutes, 'f', -1, 64))
	case settingsFieldRenewalDate:
		ti.Placeholder = "2025-03-01T09:00 (empty to clear)"
		ti.SetValue(st.RenewalDate)
	}

	ti.Focus()
	a.settings.input = ti
	return a, textinput.Blink
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		edit, err := a.settingsEdit(strings.TrimSpace(a.settings.input.Value()))
		if err != nil {
			a.settings.saveErr = err
			return a, nil
		}
		a.settings.editing = false
		return a.edit(edit)
	case "esc":
		a.settings.editing = false
		a.settings.saveErr = nil
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsEdit converts the text input into a record edit.
func (a App) settingsEdit(val string) (func(*model.State) error, error) {
	bal := a.snap.State.Balance
	switch a.settings.cursor {
	case settingsFieldHours:
		parsed, err := tracker.ParseBalance(val, "")
		if err != nil {
			return nil, err
		}
		bal.Hours = parsed.Hours
		return tracker.SetBalance(bal), nil
	case settingsFieldMinutes:
		parsed, err := tracker.ParseBalance("", val)
		if err != nil {
			return nil, err
		}
		bal.Minutes = parsed.Minutes
		return tracker.SetBalance(bal), nil
	case settingsFieldRenewalDate:
		return tracker.SetRenewalDate(val), nil
	}
	return nil, fmt.Errorf("field %d is not editable", a.settings.cursor)
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	st := a.snap.State
	m := a.snap.Metrics

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	type field struct {
		label string
		value string
	}

	fields := []field{
		{"Balance hours", strconv.FormatFloat(st.Balance.Hours, 'f', -1, 64)},
		{"Balance minutes", strconv.FormatFloat(st.Balance.Minutes, 'f', -1, 64)},
		{"Plan", m.Plan.Name},
		{"Billing cycle", string(st.BillingCycle)},
		{"Renewal date", cli.FormatRenewalDate(st.RenewalDate)},
		{"Auto renew", cli.OnOff(st.AutoRenew)},
		{"Reset balance", cli.OnOff(st.ResetBalanceOnRenewal)},
		{"Include rollover", cli.OnOff(st.IncludeRollover)},
		{"Clear top-ups", cli.OnOff(st.ClearTopUpsOnRenewal)},
		{"Exclude rollover", cli.OnOff(st.ExcludeRollover)},
		{"Theme", theme.Active.Name},
	}

	innerW := components.CardInnerWidth(cw)
	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker + label + value)
			if padLen := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit or toggle  [Esc] cancel  [s] setup"))

	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Config file:  ") + valueStyle.Render(config.Path()) + "\n")
	infoBody.WriteString(labelStyle.Render("Database:     ") + valueStyle.Render(config.DBPath(a.cfg)) + "\n")
	infoBody.WriteString(labelStyle.Render("Renewals:     ") + valueStyle.Render(cli.FormatNumber(int64(len(a.history)))))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))
	return b.String()
}
