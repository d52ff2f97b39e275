// Package model defines domain types for gburn allowance tracking.
package model

import "math"

// Balance is the remaining allowance as entered on the service's account page.
// Minutes are not normalized; a hand-edited 90m is simply 1.5h.
type Balance struct {
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
}

// TotalHours returns the balance in decimal hours. Non-finite parts count as 0.
func (b Balance) TotalHours() float64 {
	return finiteOrZero(b.Hours) + finiteOrZero(b.Minutes)/60
}

// BalanceFromHours decomposes decimal hours into whole hours and rounded minutes.
// A remainder that rounds to 60 minutes carries into the hour.
func BalanceFromHours(total float64) Balance {
	h, m := SplitHours(total)
	return Balance{Hours: float64(h), Minutes: float64(m)}
}

// SplitHours floors the hours and rounds the remainder to minutes, carrying 60m.
// Negative and non-finite input is treated as 0.
func SplitHours(total float64) (hours, minutes int) {
	total = finiteOrZero(total)
	if total < 0 {
		total = 0
	}
	h := math.Floor(total)
	m := math.Round((total - h) * 60)
	if m >= 60 {
		h++
		m = 0
	}
	return int(h), int(m)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
