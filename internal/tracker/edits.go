package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/gburn/internal/billing"
	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
)

// ParseBalance coerces user-entered hours and minutes. Blank parts are 0.
func ParseBalance(hours, minutes string) (model.Balance, error) {
	h, err := parseAmount(hours)
	if err != nil {
		return model.Balance{}, fmt.Errorf("%w: hours %q", ErrInvalidBalance, hours)
	}
	m, err := parseAmount(minutes)
	if err != nil {
		return model.Balance{}, fmt.Errorf("%w: minutes %q", ErrInvalidBalance, minutes)
	}
	return model.Balance{Hours: h, Minutes: m}, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("not a non-negative number")
	}
	return f, nil
}

// SetBalance returns an edit that replaces the balance.
func SetBalance(b model.Balance) func(*model.State) error {
	return func(st *model.State) error {
		st.Balance = b
		return nil
	}
}

// SetPlan returns an edit that switches plan and, when cycle is non-empty, billing cycle.
func SetPlan(plans config.PlanTable, name string, cycle string) func(*model.State) error {
	return func(st *model.State) error {
		key, err := plans.Resolve(name)
		if err != nil {
			return err
		}
		st.Plan = key
		if cycle != "" {
			c, ok := model.ParseBillingCycle(cycle)
			if !ok {
				return fmt.Errorf("invalid billing cycle %q (monthly or yearly)", cycle)
			}
			st.BillingCycle = c
		}
		return nil
	}
}

// AdjustTopUps returns an edit that adds delta blocks, never going below 0.
func AdjustTopUps(delta int) func(*model.State) error {
	return func(st *model.State) error {
		st.PurchasedBlocks = max(0, st.PurchasedBlocks+delta)
		return nil
	}
}

// SetExcludeRollover returns an edit that sets the rollover-exclusion flag.
func SetExcludeRollover(on bool) func(*model.State) error {
	return func(st *model.State) error {
		st.ExcludeRollover = on
		return nil
	}
}

// SetRenewalDate returns an edit that sets the renewal date. An empty value
// clears it; anything else must parse.
func SetRenewalDate(value string) func(*model.State) error {
	return func(st *model.State) error {
		value = strings.TrimSpace(value)
		if value == "" {
			st.RenewalDate = ""
			return nil
		}
		t, ok := billing.ParseRenewalDate(value, nil)
		if !ok {
			return fmt.Errorf("invalid renewal date %q (want YYYY-MM-DDTHH:MM)", value)
		}
		st.RenewalDate = billing.FormatRenewalDate(t)
		return nil
	}
}

// RenewalFlags holds optional renewal flag changes; nil leaves a flag alone.
type RenewalFlags struct {
	AutoRenew             *bool
	ResetBalanceOnRenewal *bool
	IncludeRollover       *bool
	ClearTopUpsOnRenewal  *bool
}

// SetRenewalFlags returns an edit that applies the non-nil flags.
func SetRenewalFlags(f RenewalFlags) func(*model.State) error {
	return func(st *model.State) error {
		if f.AutoRenew != nil {
			st.AutoRenew = *f.AutoRenew
		}
		if f.ResetBalanceOnRenewal != nil {
			st.ResetBalanceOnRenewal = *f.ResetBalanceOnRenewal
		}
		if f.IncludeRollover != nil {
			st.IncludeRollover = *f.IncludeRollover
		}
		if f.ClearTopUpsOnRenewal != nil {
			st.ClearTopUpsOnRenewal = *f.ClearTopUpsOnRenewal
		}
		return nil
	}
}

// Chain applies edits in order, stopping at the first error.
func Chain(edits ...func(*model.State) error) func(*model.State) error {
	return func(st *model.State) error {
		for _, edit := range edits {
			if err := edit(st); err != nil {
				return err
			}
		}
		return nil
	}
}
