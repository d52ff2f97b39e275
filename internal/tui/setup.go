package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/gburn/internal/billing"
	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
	"github.com/theirongolddev/gburn/internal/tui/theme"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	Plan            string
	Cycle           string
	RenewalDate     string
	AutoRenew       bool
	ResetBalance    bool
	IncludeRollover bool
	ClearTopUps     bool
	Theme           string
}

// SetupValuesFrom seeds the form with the stored record and current config.
func SetupValuesFrom(st model.State, cfg config.Config) *SetupValues {
	th := cfg.Appearance.Theme
	if !theme.Exists(th) {
		th = theme.FlexokiDark.Name
	}
	plan := config.NormalizePlanKey(st.Plan)
	if _, ok := config.DefaultPlans[plan]; !ok {
		plan = model.DefaultPlanKey
	}
	return &SetupValues{
		Plan:            plan,
		Cycle:           string(st.BillingCycle),
		RenewalDate:     st.RenewalDate,
		AutoRenew:       st.AutoRenew,
		ResetBalance:    st.ResetBalanceOnRenewal,
		IncludeRollover: st.IncludeRollover,
		ClearTopUps:     st.ClearTopUpsOnRenewal,
		Theme:           th,
	}
}

// NewSetupForm builds the huh form that edits v in place.
func NewSetupForm(plans config.PlanTable, v *SetupValues) *huh.Form {
	planOpts := make([]huh.Option[string], 0, len(plans))
	for _, key := range plans.Keys() {
		p := plans.Lookup(key)
		planOpts = append(planOpts, huh.NewOption(
			fmt.Sprintf("%s (%s/mo, %s/yr)", p.Name, cli.FormatCurrency(p.MonthlyPrice), cli.FormatCurrency(p.YearlyPrice)),
			key,
		))
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("gburn setup").
				Description("Tell gburn about your subscription.\nEverything can be changed later with `gburn setup` or the Settings tab."),
			huh.NewSelect[string]().
				Title("Plan").
				Options(planOpts...).
				Value(&v.Plan),
			huh.NewSelect[string]().
				Title("Billing cycle").
				Options(
					huh.NewOption("Monthly", string(model.Monthly)),
					huh.NewOption("Yearly", string(model.Yearly)),
				).
				Value(&v.Cycle),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Next renewal").
				Description("YYYY-MM-DDTHH:MM, leave empty to never renew").
				Placeholder("2025-03-01T09:00").
				Validate(validateRenewalDate).
				Value(&v.RenewalDate),
			huh.NewConfirm().
				Title("Renew automatically when the date passes?").
				Value(&v.AutoRenew),
			huh.NewConfirm().
				Title("Reset balance to the base allowance on renewal?").
				Value(&v.ResetBalance),
			huh.NewConfirm().
				Title(fmt.Sprintf("Carry up to %dh of unused time into the next cycle?", model.RolloverHours)).
				Value(&v.IncludeRollover),
			huh.NewConfirm().
				Title("Clear purchased top-ups on renewal?").
				Value(&v.ClearTopUps),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	).WithTheme(huh.ThemeCharm())
}

func validateRenewalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, ok := billing.ParseRenewalDate(s, nil); !ok {
		return errors.New("use YYYY-MM-DDTHH:MM")
	}
	return nil
}

// Edit returns the record edit described by the answers.
func (v SetupValues) Edit(plans config.PlanTable) func(*model.State) error {
	return tracker.Chain(
		tracker.SetPlan(plans, v.Plan, v.Cycle),
		tracker.SetRenewalDate(v.RenewalDate),
		tracker.SetRenewalFlags(tracker.RenewalFlags{
			AutoRenew:             &v.AutoRenew,
			ResetBalanceOnRenewal: &v.ResetBalance,
			IncludeRollover:       &v.IncludeRollover,
			ClearTopUpsOnRenewal:  &v.ClearTopUps,
		}),
	)
}

// ApplyConfig copies the config-level answers into cfg.
func (v SetupValues) ApplyConfig(cfg *config.Config) {
	if theme.Exists(v.Theme) {
		cfg.Appearance.Theme = v.Theme
	}
}
