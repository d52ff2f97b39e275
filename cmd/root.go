// Package cmd implements the gburn CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/gburn/internal/billing"
	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/logger"
	"github.com/theirongolddev/gburn/internal/store"
	"github.com/theirongolddev/gburn/internal/tracker"
)

var (
	flagDB    string
	flagQuiet bool
	flagNow   string
)

// appCfg is the configuration loaded before every command runs.
var appCfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "gburn",
	Short: "Cloud gaming allowance tracker",
	Long: "Track a metered cloud gaming allowance: hours left, daily budget,\n" +
		"monthly cost and automatic renewal with rollover and top-ups.",
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
	RunE:              runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "State database path (default $GBURN_DB or ~/.local/share/gburn/gburn.db)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Reference time as YYYY-MM-DDTHH:MM (default: current time)")
}

// prepare loads .env, the config file and the logger for every command.
func prepare(cmd *cobra.Command, _ []string) error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appCfg = cfg

	log, err := logger.New(cfg.Log.Env, config.LogLevel(cfg))
	if err != nil {
		return err
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn("ignoring .env", zap.Error(envErr))
	}

	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

func dbPath() string {
	if flagDB != "" {
		return flagDB
	}
	return config.DBPath(appCfg)
}

// openTracker opens the state database and wraps it in a tracker.
// The returned func closes the database.
func openTracker(ctx context.Context) (*tracker.Tracker, func(), error) {
	log := logger.FromContext(ctx)

	path := dbPath()
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("opened state db", zap.String("path", path))

	tr := tracker.New(db, configuredPlans(),
		tracker.WithCatchUp(appCfg.General.CatchUp),
		tracker.WithLogger(log),
	)
	return tr, func() { _ = db.Close() }, nil
}

func configuredPlans() config.PlanTable {
	return config.Plans(appCfg)
}

// referenceNow returns --now when given, otherwise the current time.
func referenceNow() (time.Time, error) {
	if flagNow == "" {
		return time.Now(), nil
	}
	if t, ok := billing.ParseRenewalDate(flagNow, time.Local); ok {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, flagNow); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --now %q (want YYYY-MM-DDTHH:MM or RFC 3339)", flagNow)
}

// info prints to stderr unless --quiet.
func info(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
