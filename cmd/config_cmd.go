package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Database: %s\n", dbPath())
	fmt.Printf("    Catch up: %v\n", cfg.General.CatchUp)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", config.DaemonAddr(cfg))
	fmt.Printf("    Schedule:      %s\n", cfg.Daemon.Schedule)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Env:   %s\n", cfg.Log.Env)
	level := config.LogLevel(cfg)
	if level == "" {
		level = "default"
	}
	fmt.Printf("    Level: %s\n", level)
	fmt.Println()

	plans := config.Plans(cfg)
	rows := make([][]string, 0, len(plans))
	for _, key := range plans.Keys() {
		p := plans.Lookup(key)
		rows = append(rows, []string{
			p.Name,
			cli.FormatCurrency(p.MonthlyPrice),
			cli.FormatCurrency(p.YearlyPrice),
			cli.FormatCurrency(p.TopUpPrice),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Plans",
		Headers: []string{"Plan", "Monthly", "Yearly", "Top-up"},
		Rows:    rows,
	}))

	if len(cfg.Pricing.Overrides) > 0 {
		keys := make([]string, 0, len(cfg.Pricing.Overrides))
		for k := range cfg.Pricing.Overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("  Price overrides: %v\n", keys)
	}
	fmt.Println()

	fmt.Println("  Run `gburn setup` to reconfigure.")
	return nil
}
