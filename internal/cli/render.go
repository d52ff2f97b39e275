package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/theirongolddev/gburn/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBg        = lipgloss.Color("#100F0F")
	ColorSurface   = lipgloss.Color("#1C1B1A")
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	costStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	hoursStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table is a bordered CLI table. A row holding the single cell "---"
// renders as a blank spacer between groups.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// RenderTable renders t with rounded borders. The first column is left
// aligned and the rest are right aligned.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if len(r) == 1 && r[0] == "---" {
			r = []string{""}
		}
		rows = append(rows, r)
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(t.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return cell.Inherit(headerStyle)
			case col > 0:
				return cell.Inherit(valueStyle).Align(lipgloss.Right)
			default:
				return cell.Inherit(valueStyle)
			}
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(tbl.String())
	b.WriteString("\n")
	return b.String()
}

// Hours styles an hours figure.
func Hours(s string) string { return hoursStyle.Render(s) }

// Cost styles a currency figure.
func Cost(s string) string { return costStyle.Render(s) }

// Warn styles a warning.
func Warn(s string) string { return warnStyle.Render(s) }

// Muted styles secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// PlanLabel renders a plan name in its accent color.
func PlanLabel(p model.Plan) string {
	color := lipgloss.Color(p.Color)
	if p.Color == "" {
		color = ColorAccent
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(p.Name)
}

// RenderHoursBar renders remaining hours against the allowance as a text bar.
// The bar turns orange below a quarter and red below a tenth.
func RenderHoursBar(current, allowance float64, width int) string {
	if allowance <= 0 || width <= 0 {
		return ""
	}

	pct := current / allowance
	if math.IsNaN(pct) || pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	filled := int(math.Round(pct * float64(width)))
	style := costStyle
	switch {
	case pct < 0.10:
		style = lipgloss.NewStyle().Foreground(ColorRed)
	case pct < 0.25:
		style = warnStyle
	}

	bar := style.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("[%s] %s", bar, FormatPercent(pct))
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / max * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}
