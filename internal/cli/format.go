// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/theirongolddev/gburn/internal/billing"
	"github.com/theirongolddev/gburn/internal/model"
)

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatHours formats decimal hours as whole hours and rounded minutes.
// e.g., 1.5 -> "1h 30m", 0.1 -> "0h 6m", 1.999 -> "2h 0m"
func FormatHours(h float64) string {
	hours, mins := model.SplitHours(h)
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// FormatCurrency formats a USD amount with grouping and two decimals.
// e.g., 0 -> "$0.00", 1234.5 -> "$1,234.50", -3 -> "-$3.00"
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	cents := math.Round(v * 100)
	if cents == 0 {
		return "$0.00"
	}
	if cents < 0 {
		return "-$" + usd.Sprintf("%.2f", -cents/100)
	}
	return "$" + usd.Sprintf("%.2f", cents/100)
}

// FormatBudget formats a daily hours budget.
func FormatBudget(h float64) string {
	return FormatHours(h) + "/day"
}

// FormatDays formats a day count.
func FormatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return FormatNumber(int64(n)) + " days"
}

// FormatRenewalDate formats a stored renewal date for display.
// Unset and unparseable dates read "not set".
func FormatRenewalDate(s string) string {
	t, ok := billing.ParseRenewalDate(s, time.Local)
	if !ok {
		return "not set"
	}
	return t.Format("Mon Jan 2, 2006 15:04")
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatHoursDelta formats a change in hours with an explicit sign.
func FormatHoursDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatHours(delta)
	}
	return "-" + FormatHours(-delta)
}

// OnOff renders a flag.
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
