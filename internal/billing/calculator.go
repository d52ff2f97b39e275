// Package billing holds the allowance calculator and the renewal engine.
// Everything here is a pure function of its arguments; callers pass "now".
package billing

import (
	"math"
	"time"

	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
)

// Calculator derives dashboard metrics using a plan table.
type Calculator struct {
	Plans config.PlanTable
}

// NewCalculator returns a Calculator for the given plan table.
func NewCalculator(plans config.PlanTable) Calculator {
	return Calculator{Plans: plans}
}

// Calculate derives metrics for st at now using the default plan table.
func Calculate(st model.State, now time.Time) model.Metrics {
	return NewCalculator(config.DefaultPlans).Calculate(st, now)
}

// Calculate derives days remaining, hours, daily budget and costs for st at now.
func (c Calculator) Calculate(st model.State, now time.Time) model.Metrics {
	plans := c.Plans
	if plans == nil {
		plans = config.DefaultPlans
	}
	plan := plans.Lookup(st.Plan)

	days := DaysRemaining(st.RenewalDate, now)
	total := st.Balance.TotalHours()
	effective := EffectiveHours(total, st.ExcludeRollover)

	budget := 0.0
	if days > 0 {
		budget = effective / float64(days)
	}

	blocks := st.PurchasedBlocks
	if blocks < 0 {
		blocks = 0
	}
	topUps := float64(blocks) * plan.TopUpPrice

	return model.Metrics{
		DaysRemaining:        days,
		TotalCurrentHours:    total,
		EffectiveHours:       effective,
		BudgetPerDay:         budget,
		TotalCost:            plan.PriceFor(st.BillingCycle) + topUps,
		EstimatedMonthlyCost: plan.MonthlyEquivalent(st.BillingCycle) + topUps,
		TopUpHours:           float64(blocks * model.TopUpHours),
		Plan:                 plan,
	}
}

// EffectiveHours returns the hours available for budgeting. With the rollover
// excluded, the capped rollover portion is held back and the result floors at 0.
func EffectiveHours(total float64, excludeRollover bool) float64 {
	if !excludeRollover {
		return total
	}
	return math.Max(0, total-model.RolloverHours)
}
