package cli

import (
	"math"
	"strings"
	"testing"
)

func TestFormatHours(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1h 30m"},
		{0.1, "0h 6m"},
		{1.999, "2h 0m"},
		{0, "0h 0m"},
		{115, "115h 0m"},
		{10.25, "10h 15m"},
		{-3, "0h 0m"},
		{math.NaN(), "0h 0m"},
	}
	for _, tt := range tests {
		if got := FormatHours(tt.in); got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{10, "$10.00"},
		{19.99, "$19.99"},
		{9.99 + 2*2.99, "$15.97"},
		{1234.5, "$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{-3, "-$3.00"},
		{-0.001, "$0.00"},
		{math.Inf(1), "$0.00"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDays(t *testing.T) {
	if got := FormatDays(1); got != "1 day" {
		t.Errorf("FormatDays(1) = %q", got)
	}
	if got := FormatDays(0); got != "0 days" {
		t.Errorf("FormatDays(0) = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRenewalDate(t *testing.T) {
	if got := FormatRenewalDate(""); got != "not set" {
		t.Errorf("FormatRenewalDate(\"\") = %q", got)
	}
	if got := FormatRenewalDate("2024-02-01T09:05"); got != "Thu Feb 1, 2024 09:05" {
		t.Errorf("FormatRenewalDate = %q", got)
	}
}

func TestFormatHoursDelta(t *testing.T) {
	if got := FormatHoursDelta(115, 10.5); got != "+104h 30m" {
		t.Errorf("FormatHoursDelta = %q", got)
	}
	if got := FormatHoursDelta(10, 12.5); got != "-2h 30m" {
		t.Errorf("FormatHoursDelta = %q", got)
	}
}

func TestRenderHoursBar(t *testing.T) {
	if got := RenderHoursBar(10, 0, 20); got != "" {
		t.Errorf("zero allowance should render nothing, got %q", got)
	}
	got := RenderHoursBar(50, 100, 20)
	if !strings.Contains(got, "50.0%") {
		t.Errorf("RenderHoursBar(50, 100) = %q, want 50.0%%", got)
	}
	if got := RenderHoursBar(150, 100, 10); !strings.Contains(got, "100.0%") {
		t.Errorf("over-full bar should cap at 100%%, got %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Date", "Balance"},
		Rows:    [][]string{{"2024-02-01", "115h 0m"}, {"---"}, {"2024-03-01", "110h 0m"}},
	})
	for _, want := range []string{"Date", "Balance", "115h 0m", "110h 0m", "╭", "┼"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if RenderTable(Table{}) != "" {
		t.Error("empty table should render nothing")
	}
}
