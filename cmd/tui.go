package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/tui"
	"github.com/theirongolddev/gburn/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	tr, closeDB, err := openTracker(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	opts := tui.Options{
		Config:   appCfg,
		FirstRun: !config.Exists(),
	}
	if flagNow != "" {
		now, err := referenceNow()
		if err != nil {
			return err
		}
		opts.Now = func() time.Time { return now }
	}

	p := tea.NewProgram(tui.NewApp(tr, opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
