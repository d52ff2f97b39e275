package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup for plan, renewal date and renewal options",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
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

	vals := tui.SetupValuesFrom(snap.State, appCfg)
	if err := tui.NewSetupForm(tr.Plans(), vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return err
	}

	cfg := appCfg
	vals.ApplyConfig(&cfg)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	appCfg = cfg

	snap, err = tr.Update(ctx, now, vals.Edit(tr.Plans()))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `gburn setup` anytime to reconfigure.")
	printDashboard(snap)
	return nil
}
