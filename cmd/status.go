package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balance, daily budget and cost (applies a due renewal)",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	now, err := referenceNow()
	if err != nil {
		return err
	}

	tr, closeDB, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	snap, err := tr.Refresh(ctx, now)
	if err != nil {
		return err
	}

	reportRenewals(snap)
	printDashboard(snap)
	return nil
}

func reportRenewals(snap tracker.Snapshot) {
	if !snap.Renewed() {
		return
	}
	last := snap.Renewals[len(snap.Renewals)-1]
	info("  Renewed %d cycle(s): balance %s, next renewal %s\n",
		len(snap.Renewals),
		cli.FormatHours(last.NewBalance.TotalHours()),
		cli.FormatRenewalDate(last.NewDate),
	)
}

// printDashboard renders the allowance summary for a snapshot.
func printDashboard(snap tracker.Snapshot) {
	st := snap.State
	m := snap.Metrics

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("GBURN  %s · %s", m.Plan.Name, st.BillingCycle)))
	fmt.Println()

	allowance := float64(model.BaseAllowanceHours+model.RolloverHours) + m.TopUpHours

	rows := [][]string{
		{"Balance", cli.FormatHours(m.TotalCurrentHours)},
	}
	if st.ExcludeRollover {
		rows = append(rows, []string{"Effective", cli.FormatHours(m.EffectiveHours) + " (rollover excluded)"})
	}
	rows = append(rows,
		[]string{"Remaining", cli.RenderHoursBar(m.TotalCurrentHours, allowance, 20)},
		[]string{"---"},
		[]string{"Days left", cli.FormatDays(m.DaysRemaining)},
		[]string{"Renews", cli.FormatRenewalDate(st.RenewalDate)},
		[]string{"Daily budget", cli.FormatBudget(m.BudgetPerDay)},
		[]string{"---"},
		[]string{"Plan price", cli.FormatCurrency(m.Plan.PriceFor(st.BillingCycle))},
		[]string{"Top-ups", fmt.Sprintf("%d (%s)", st.PurchasedBlocks, cli.FormatHours(m.TopUpHours))},
		[]string{"Total cost", cli.FormatCurrency(m.TotalCost)},
		[]string{"Est. monthly", cli.FormatCurrency(m.EstimatedMonthlyCost)},
	)

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Allowance", "Value"},
		Rows:    rows,
	}))

	if st.RenewalDate != "" && !st.AutoRenew {
		fmt.Printf("  %s\n", cli.Warn("Auto-renew is off; the balance will not reset on the renewal date."))
	}
	fmt.Println()
}
