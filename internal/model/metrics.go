package model

import "time"

// Metrics holds the derived dashboard figures for one State at one instant.
type Metrics struct {
	DaysRemaining     int
	TotalCurrentHours float64
	EffectiveHours    float64
	BudgetPerDay      float64

	TotalCost            float64 // one billing period plus top-ups
	EstimatedMonthlyCost float64 // yearly price amortized over 12 months
	TopUpHours           float64

	Plan Plan
}

// RenewalEvent records one applied renewal.
type RenewalEvent struct {
	ID              string
	AppliedAt       time.Time
	PreviousDate    string
	NewDate         string
	PreviousBalance Balance
	NewBalance      Balance
	PreviousBlocks  int
	NewBlocks       int
}
