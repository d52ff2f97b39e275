package model

// Plan is a subscription tier with its list prices in USD.
type Plan struct {
	Key          string
	Name         string
	MonthlyPrice float64
	YearlyPrice  float64
	TopUpPrice   float64
	Color        string // accent color used by renderers
}

// PriceFor returns the price charged for one billing period of the cycle.
func (p Plan) PriceFor(cycle BillingCycle) float64 {
	if cycle == Yearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// MonthlyEquivalent returns the plan price per month, amortizing yearly billing.
func (p Plan) MonthlyEquivalent(cycle BillingCycle) float64 {
	if cycle == Yearly {
		return p.YearlyPrice / 12
	}
	return p.MonthlyPrice
}
