package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/gburn/internal/cli"
	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/daemon"
	"github.com/theirongolddev/gburn/internal/logger"
)

const defaultDaemonAddr = "127.0.0.1:8797"

var (
	flagDaemonAddr         string
	flagDaemonSchedule     string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Check renewals on a schedule and serve status over HTTP, SSE and /metrics",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon and its latest allowance snapshot",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config, "+defaultDaemonAddr+")")
	pf.StringVar(&flagDaemonSchedule, "schedule", "", "Cron spec for renewal checks (default from config, @every 1m)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.DataDir(), "gburnd.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.DataDir(), "gburnd.log"), "Log file for --detach")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Events kept in memory (default from config, 200)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Fork into the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonConfig merges flags over the config file.
func daemonConfig() daemon.Config {
	cfg := daemon.Config{
		Addr:         config.DaemonAddr(appCfg),
		Schedule:     appCfg.Daemon.Schedule,
		EventsBuffer: appCfg.Daemon.EventsBuffer,
		DBPath:       dbPath(),
	}
	if flagDaemonAddr != "" {
		cfg.Addr = flagDaemonAddr
	}
	if flagDaemonSchedule != "" {
		cfg.Schedule = flagDaemonSchedule
	}
	if flagDaemonEventsBuffer > 0 {
		cfg.EventsBuffer = flagDaemonEventsBuffer
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultDaemonAddr
	}
	return cfg
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("--detach and --child are mutually exclusive")
	case flagDaemonDetach:
		return detachDaemon()
	default:
		return serveDaemon(cmd.Context())
	}
}

// detachDaemon re-executes the binary without --detach and returns once the child has started.
func detachDaemon() error {
	if err := pidFile(flagDaemonPIDFile).ensureFree(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, append(filterDetachArg(os.Args[1:]), "--child")...) //nolint:gosec // re-exec of self
	child.Stdout, child.Stderr = logf, logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	info("  Started daemon (pid %d)\n", child.Process.Pid)
	info("  API:  http://%s/v1/status\n", daemonConfig().Addr)
	info("  Log:  %s\n", flagDaemonLogFile)
	return nil
}

func serveDaemon(ctx context.Context) error {
	cfg := daemonConfig()
	pids := pidFile(flagDaemonPIDFile)
	if err := pids.Claim(daemonInfo{
		PID:       os.Getpid(),
		Addr:      cfg.Addr,
		Schedule:  cfg.Schedule,
		StartedAt: time.Now(),
		DBPath:    cfg.DBPath,
	}); err != nil {
		return err
	}
	defer pids.Remove()

	tr, closeDB, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	log := logger.FromContext(ctx).Named("daemon")
	svc := daemon.New(cfg, tr, log)

	info("  gburn daemon on http://%s (db %s)\n", cfg.Addr, cfg.DBPath)
	info("  Stop with: gburn daemon stop --pid-file %s\n", flagDaemonPIDFile)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("daemon stopped", zap.Error(err))
		return err
	}
	return nil
}

func fetchDaemonStatus(ctx context.Context, addr string) (daemon.Status, error) {
	var st daemon.Status
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	pids := pidFile(flagDaemonPIDFile)
	pid, err := pids.Read()
	if err != nil {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := daemonConfig().Addr
	if di, err := pids.Info(); err == nil && di.Addr != "" {
		addr = di.Addr
	}

	rows := [][]string{
		{"PID", fmt.Sprint(pid)},
		{"Address", "http://" + addr},
	}

	st, err := fetchDaemonStatus(cmd.Context(), addr)
	if err != nil {
		rows = append(rows, []string{"API", "unreachable: " + err.Error()})
		fmt.Println(cli.RenderTable(cli.Table{Title: "Daemon", Rows: rows}))
		return nil
	}

	lastPoll := "pending"
	if !st.LastPollAt.IsZero() {
		lastPoll = st.LastPollAt.Local().Format(time.DateTime)
	}
	rows = append(rows,
		[]string{"Schedule", st.Schedule},
		[]string{"Last check", lastPoll},
		[]string{"Checks", cli.FormatNumber(st.PollCount)},
		[]string{"Renewals", cli.FormatNumber(st.RenewalCount)},
	)
	if !st.NextPollAt.IsZero() {
		rows = append(rows, []string{"Next check", st.NextPollAt.Local().Format(time.DateTime)})
	}
	rows = append(rows,
		[]string{"Balance", cli.FormatHours(st.Summary.BalanceHours)},
		[]string{"Days left", cli.FormatDays(st.Summary.DaysRemaining)},
		[]string{"Daily budget", cli.FormatBudget(st.Summary.BudgetPerDay)},
		[]string{"Est. monthly", cli.FormatCurrency(st.Summary.EstimatedMonthlyCostUSD)},
	)
	if st.LastError != "" {
		rows = append(rows, []string{"Last error", st.LastError})
	}

	fmt.Println(cli.RenderTable(cli.Table{Title: "Daemon", Rows: rows}))
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pids := pidFile(flagDaemonPIDFile)
	pid, err := pids.Read()
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}
	if !waitExit(pid, 8*time.Second) {
		return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
	}
	pids.Remove()
	info("  Stopped daemon (pid %d)\n", pid)
	return nil
}

// filterDetachArg drops --detach so the re-executed child runs in the foreground.
func filterDetachArg(args []string) []string {
	return slices.DeleteFunc(slices.Clone(args), func(a string) bool {
		return a == "--detach" || strings.HasPrefix(a, "--detach=")
	})
}
