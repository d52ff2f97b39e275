// Package tui provides the interactive Bubble Tea dashboard for gburn.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
	"github.com/theirongolddev/gburn/internal/tui/components"
	"github.com/theirongolddev/gburn/internal/tui/theme"
)

const (
	tabDashboard = iota
	tabTopUps
	tabHistory
	tabSettings
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 160
	minContentHeight = 5

	historyLimit    = 24
	refreshInterval = time.Minute
	opTimeout       = 10 * time.Second
)

// snapshotMsg carries the result of a load, refresh or edit.
type snapshotMsg struct {
	snap    tracker.Snapshot
	history []model.RenewalEvent
	err     error
	edit    bool
}

type tickMsg time.Time

// Options configures NewApp.
type Options struct {
	Config   config.Config
	Now      func() time.Time // defaults to time.Now
	FirstRun bool             // show the setup form once the record is loaded
}

// App is the root Bubble Tea model.
type App struct {
	tracker *tracker.Tracker
	cfg     config.Config
	now     func() time.Time

	// Data
	snap        tracker.Snapshot
	history     []model.RenewalEvent
	loaded      bool
	err         error
	lastRefresh time.Time
	busy        bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	flash     string

	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool

	spinner spinner.Model
}

// NewApp creates a new TUI app model over tr.
func NewApp(tr *tracker.Tracker, opts Options) App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		tracker:   tr,
		cfg:       opts.Config,
		now:       now,
		needSetup: opts.FirstRun,
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		refreshCmd(a.tracker, a.now()),
		a.spinner.Tick,
		tickCmd(),
	)
}

func refreshCmd(tr *tracker.Tracker, now time.Time) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		snap, err := tr.Refresh(ctx, now)
		if err != nil {
			return snapshotMsg{err: err}
		}
		history, err := tr.History(ctx, historyLimit)
		return snapshotMsg{snap: snap, history: history, err: err}
	}
}

func updateCmd(tr *tracker.Tracker, now time.Time, edit func(*model.State) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		snap, err := tr.Update(ctx, now, edit)
		if err != nil {
			return snapshotMsg{err: err, edit: true}
		}
		history, err := tr.History(ctx, historyLimit)
		return snapshotMsg{snap: snap, history: history, err: err, edit: true}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// edit starts a background update and marks the app busy.
func (a App) edit(fn func(*model.State) error) (App, tea.Cmd) {
	a.busy = true
	a.flash = ""
	return a, updateCmd(a.tracker, a.now(), fn)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case snapshotMsg:
		a.busy = false
		if msg.err != nil {
			a.err = msg.err
			if msg.edit {
				a.settings.saveErr = msg.err
			}
			// A failed load still leaves the dashboard usable with defaults.
			if !a.loaded {
				a.loaded = true
				a.snap = tracker.Snapshot{State: model.DefaultState(), At: a.now()}
				a.snap.Metrics = a.tracker.Calculate(a.snap.State, a.snap.At)
			}
			return a, nil
		}
		first := !a.loaded
		a.err = nil
		a.settings.saveErr = nil
		a.snap = msg.snap
		a.history = msg.history
		a.loaded = true
		a.lastRefresh = a.now()
		if msg.edit {
			a.settings.saved = true
		}
		if msg.snap.Renewed() {
			a.flash = fmt.Sprintf("Renewed %d cycle(s), next renewal %s", len(msg.snap.Renewals), msg.snap.State.RenewalDate)
		}

		if first && a.needSetup {
			a.setupVals = SetupValuesFrom(a.snap.State, a.cfg)
			a.setupForm = NewSetupForm(a.tracker.Plans(), a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && !a.busy && a.setupForm == nil {
			a.busy = true
			cmds = append(cmds, refreshCmd(a.tracker, a.now()))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabSettings {
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter", " ":
			return a.settingsActivate()
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.busy {
			return a, nil
		}
		a.busy = true
		return a, refreshCmd(a.tracker, a.now())
	case "+", "=":
		return a.edit(tracker.AdjustTopUps(1))
	case "-", "_":
		return a.edit(tracker.AdjustTopUps(-1))
	case "e":
		return a.edit(tracker.SetExcludeRollover(!a.snap.State.ExcludeRollover))
	case "b":
		a.activeTab = tabSettings
		a.settings.cursor = settingsFieldHours
		return a.settingsStartEdit()
	case "s":
		a.setupVals = SetupValuesFrom(a.snap.State, a.cfg)
		a.setupForm = NewSetupForm(a.tracker.Plans(), a.setupVals)
		if a.width > 0 {
			a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
		}
		return a, a.setupForm.Init()
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		vals := *a.setupVals
		a.needSetup = false
		a.setupForm = nil
		a.setupVals = nil

		vals.ApplyConfig(&a.cfg)
		theme.SetActive(a.cfg.Appearance.Theme)
		a.settings.saveErr = config.Save(a.cfg)
		return a.edit(vals.Edit(a.tracker.Plans()))

	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		a.setupVals = nil
		return a, nil
	}

	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  gburn needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logoStyle.Render("◈ gburn") +
		subtitleStyle.Render(" · Allowance Tracker") + "\n\n" +
		a.spinner.View() + subtitleStyle.Render(" Loading allowance...")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"d t h x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move in settings"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"+ -", "Add / remove a top-up"},
			{"e", "Toggle rollover exclusion"},
			{"b", "Edit balance"},
			{"s", "Run setup"},
			{"Enter", "Edit / toggle setting"},
			{"r", "Refresh and check renewal"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-8s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	right := ""
	switch {
	case a.err != nil:
		right = "error: " + a.err.Error()
	case a.flash != "":
		right = a.flash
	case !a.lastRefresh.IsZero():
		right = "updated " + a.lastRefresh.Format("15:04")
	}
	allowance := a.allowanceHours()
	middle := ""
	if !a.isCompactLayout() && allowance > 0 {
		middle = components.CompactAllowanceBar("left", a.snap.Metrics.TotalCurrentHours/allowance, 24)
	}
	statusBar := components.RenderStatusBar(w, middle, right, a.busy)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabDashboard:
		content = a.renderDashboardTab(cw)
	case tabTopUps:
		content = a.renderTopUpsTab(cw)
	case tabHistory:
		content = a.renderHistoryTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// allowanceHours is the full allowance for the cycle: base hours, the
// rollover ceiling and any purchased top-ups.
func (a App) allowanceHours() float64 {
	m := a.snap.Metrics
	return model.BaseAllowanceHours + model.RolloverHours + m.TopUpHours
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
