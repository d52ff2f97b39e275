package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/gburn/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("Test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("Joined height should match tallest card: got %d, want %d", len(lines), tallLines)
	}

	for i, line := range lines {
		if i >= shortLines && !strings.Contains(line, "\x1b[") {
			t.Errorf("Line %d has no ANSI codes; padding would render unstyled", i)
		}
	}
}

func TestCardRowWidthConsistency(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "A", 30)
	tallCard := ContentCard("Tall", "A\nB\nC\nD\nE\nF", 20)

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")

	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Errorf("Line %d width = %d, want %d", i, w, want)
		}
	}
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for total := 10; total < 200; total += 7 {
		for n := 1; n <= 5; n++ {
			sum := 0
			for _, w := range LayoutRow(total, n) {
				sum += w
			}
			if sum != total {
				t.Fatalf("LayoutRow(%d, %d) sums to %d", total, n, sum)
			}
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	row := MetricCardRow([]Metric{
		{Label: "Balance", Value: "42h 30m"},
		{Label: "Days left", Value: "12 days", Note: "renews Feb 1"},
		{Label: "Budget", Value: "3h 32m/day"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
}

func TestAllowanceColor(t *testing.T) {
	theme.SetActive("flexoki-dark")
	th := theme.Active
	cases := []struct {
		pct  float64
		want lipgloss.Color
	}{
		{1, th.Green},
		{0.4, th.Yellow},
		{0.2, th.Orange},
		{0.05, th.Red},
	}
	for _, tc := range cases {
		if got := AllowanceColor(tc.pct); got != tc.want {
			t.Errorf("AllowanceColor(%v) = %v, want %v", tc.pct, got, tc.want)
		}
	}
}
