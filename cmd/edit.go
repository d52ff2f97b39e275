package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
)

var balanceCmd = &cobra.Command{
	Use:   "balance HOURS [MINUTES]",
	Short: "Set the remaining balance",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes := ""
		if len(args) == 2 {
			minutes = args[1]
		}
		b, err := tracker.ParseBalance(args[0], minutes)
		if err != nil {
			return err
		}
		return runEdit(cmd, tracker.SetBalance(b))
	},
}

var flagCycle string

var planCmd = &cobra.Command{
	Use:   "plan NAME",
	Short: "Set the subscription plan (performance, ultimate)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagCycle != "" {
			if _, ok := model.ParseBillingCycle(flagCycle); !ok {
				return fmt.Errorf("invalid --cycle %q (monthly or yearly)", flagCycle)
			}
		}
		// Validate against the configured table before touching the store.
		plans := configuredPlans()
		if _, err := plans.Resolve(args[0]); err != nil {
			return err
		}
		return runEdit(cmd, tracker.SetPlan(plans, args[0], flagCycle))
	},
}

var topupCmd = &cobra.Command{
	Use:   "topup",
	Short: "Add or remove purchased top-up blocks",
}

var topupAddCmd = &cobra.Command{
	Use:   "add [N]",
	Short: "Add N top-up blocks (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := blockCount(args)
		if err != nil {
			return err
		}
		return runEdit(cmd, tracker.AdjustTopUps(n))
	},
}

var topupRemoveCmd = &cobra.Command{
	Use:   "remove [N]",
	Short: "Remove N top-up blocks (default 1, never below zero)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := blockCount(args)
		if err != nil {
			return err
		}
		return runEdit(cmd, tracker.AdjustTopUps(-n))
	},
}

var rolloverCmd = &cobra.Command{
	Use:       "rollover on|off",
	Short:     "Exclude rollover hours from the daily budget (on) or count them (off)",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, tracker.SetExcludeRollover(args[0] == "on"))
	},
}

func init() {
	planCmd.Flags().StringVar(&flagCycle, "cycle", "", "Billing cycle: monthly or yearly")

	topupCmd.AddCommand(topupAddCmd, topupRemoveCmd)
	rootCmd.AddCommand(balanceCmd, planCmd, topupCmd, rolloverCmd)
}

func blockCount(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid block count %q", args[0])
	}
	return n, nil
}

// runEdit applies edit to the stored record and prints the result.
func runEdit(cmd *cobra.Command, edit func(*model.State) error) error {
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

	snap, err := tr.Update(ctx, now, edit)
	if err != nil {
		return err
	}
	if flagQuiet {
		return nil
	}
	printDashboard(snap)
	return nil
}
