package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
)

var (
	flagClearDate       bool
	flagAutoRenew       bool
	flagResetBalance    bool
	flagIncludeRollover bool
	flagClearTopUps     bool
	flagCatchUp         bool
	flagHistoryLimit    int
)

var renewalCmd = &cobra.Command{
	Use:   "renewal [DATE]",
	Short: "Set the renewal date (YYYY-MM-DDTHH:MM) and renewal options",
	Example: "  gburn renewal 2025-03-01T09:00\n" +
		"  gburn renewal --clear\n" +
		"  gburn renewal --include-rollover=false --clear-topups=false",
	Args: cobra.MaximumNArgs(1),
	RunE: runRenewal,
}

var renewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Apply a due renewal now",
	Long: "Runs the renewal engine against the stored record. Without --catch-up at most\n" +
		"one billing cycle is applied; with it every overdue cycle is applied in turn.",
	Args: cobra.NoArgs,
	RunE: runRenew,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded renewals",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := renewalCmd.Flags()
	f.BoolVar(&flagClearDate, "clear", false, "Clear the renewal date (never renew)")
	f.BoolVar(&flagAutoRenew, "auto-renew", true, "Renew automatically when the date passes")
	f.BoolVar(&flagResetBalance, "reset-balance", true, "Reset the balance to the base allowance on renewal")
	f.BoolVar(&flagIncludeRollover, "include-rollover", true, "Carry up to 15h of unused balance into the next cycle")
	f.BoolVar(&flagClearTopUps, "clear-topups", true, "Clear purchased top-ups on renewal")

	renewCmd.Flags().BoolVar(&flagCatchUp, "catch-up", false, "Apply every overdue cycle, not just one")
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Maximum renewals to list (0 for all)")

	rootCmd.AddCommand(renewalCmd, renewCmd, historyCmd)
}

func runRenewal(cmd *cobra.Command, args []string) error {
	if flagClearDate && len(args) > 0 {
		return errors.New("pass a date or --clear, not both")
	}

	var edits []func(*model.State) error
	switch {
	case flagClearDate:
		edits = append(edits, tracker.SetRenewalDate(""))
	case len(args) == 1:
		edits = append(edits, tracker.SetRenewalDate(args[0]))
	}

	var flags tracker.RenewalFlags
	fs := cmd.Flags()
	if fs.Changed("auto-renew") {
		flags.AutoRenew = &flagAutoRenew
	}
	if fs.Changed("reset-balance") {
		flags.ResetBalanceOnRenewal = &flagResetBalance
	}
	if fs.Changed("include-rollover") {
		flags.IncludeRollover = &flagIncludeRollover
	}
	if fs.Changed("clear-topups") {
		flags.ClearTopUpsOnRenewal = &flagClearTopUps
	}
	edits = append(edits, tracker.SetRenewalFlags(flags))

	return runEdit(cmd, tracker.Chain(edits...))
}

func runRenew(cmd *cobra.Command, _ []string) error {
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

	snap, err := tr.Renew(ctx, now, flagCatchUp)
	if err != nil {
		return err
	}

	if !snap.Renewed() {
		info("  No renewal due (next: %s)\n", cli.FormatRenewalDate(snap.State.RenewalDate))
	}
	reportRenewals(snap)
	if !flagQuiet {
		printDashboard(snap)
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tr, closeDB, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	events, err := tr.History(ctx, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("\n  No renewals recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(events))
	carried := make([]float64, len(events))
	for i, ev := range events {
		rows = append(rows, []string{
			ev.AppliedAt.Local().Format("2006-01-02 15:04"),
			ev.PreviousDate + " → " + ev.NewDate,
			cli.FormatHours(ev.PreviousBalance.TotalHours()),
			cli.FormatHours(ev.NewBalance.TotalHours()),
			fmt.Sprintf("%d → %d", ev.PreviousBlocks, ev.NewBlocks),
		})
		carried[len(events)-1-i] = ev.PreviousBalance.TotalHours()
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Renewal History",
		Headers: []string{"Applied", "Cycle", "Unused", "New balance", "Top-ups"},
		Rows:    rows,
	}))
	fmt.Printf("  Unused hours at renewal: %s\n\n", cli.Hours(cli.RenderSparkline(carried)))
	return nil
}
