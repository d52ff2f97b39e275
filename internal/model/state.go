package model

import "strings"

// Allowance constants for the metered service.
const (
	BaseAllowanceHours = 100 // granted at every renewal
	RolloverHours      = 15  // maximum unused hours carried into the next cycle
	TopUpHours         = 15  // hours per purchased top-up block

	DefaultPlanKey = "performance"
)

// BillingCycle selects which plan price applies.
type BillingCycle string

// Known billing cycles.
const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

// ParseBillingCycle parses a cycle name, reporting whether it was recognized.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case Monthly:
		return Monthly, true
	case Yearly:
		return Yearly, true
	}
	return Monthly, false
}

// State is the single persisted record the tracker reads and writes.
// JSON field names match the record written by the browser tracker.
type State struct {
	Plan            string       `json:"plan"`
	BillingCycle    BillingCycle `json:"billingCycle"`
	Balance         Balance      `json:"balance"`
	RenewalDate     string       `json:"renewalDate"`
	PurchasedBlocks int          `json:"purchasedBlocks"`
	ExcludeRollover bool         `json:"excludeRollover"`

	AutoRenew             bool `json:"autoRenew"`
	ResetBalanceOnRenewal bool `json:"resetBalanceOnRenewal"`
	IncludeRollover       bool `json:"includeRollover"`
	ClearTopUpsOnRenewal  bool `json:"clearTopUpsOnRenewal"`
}

// DefaultState returns the record used when nothing has been saved yet.
func DefaultState() State {
	return State{
		Plan:                  DefaultPlanKey,
		BillingCycle:          Monthly,
		Balance:               Balance{Hours: BaseAllowanceHours},
		AutoRenew:             true,
		ResetBalanceOnRenewal: true,
		IncludeRollover:       true,
		ClearTopUpsOnRenewal:  true,
	}
}
