package billing

import (
	"math"
	"time"

	"github.com/theirongolddev/gburn/internal/model"
)

// RenewalInput is the slice of State the renewal engine looks at.
type RenewalInput struct {
	RenewalDate           string
	AutoRenew             bool
	ResetBalanceOnRenewal bool
	IncludeRollover       bool
	ClearTopUpsOnRenewal  bool
	Balance               model.Balance
	PurchasedBlocks       int
}

// InputFromState extracts the renewal input from a persisted record.
func InputFromState(st model.State) RenewalInput {
	return RenewalInput{
		RenewalDate:           st.RenewalDate,
		AutoRenew:             st.AutoRenew,
		ResetBalanceOnRenewal: st.ResetBalanceOnRenewal,
		IncludeRollover:       st.IncludeRollover,
		ClearTopUpsOnRenewal:  st.ClearTopUpsOnRenewal,
		Balance:               st.Balance,
		PurchasedBlocks:       st.PurchasedBlocks,
	}
}

// RenewalResult reports whether a cycle elapsed. When DidRenew is false the
// other fields are zero and carry no meaning.
type RenewalResult struct {
	DidRenew           bool
	NewRenewalDate     string
	NewBalance         model.Balance
	NewPurchasedBlocks int
}

// CheckRenewal decides whether the billing cycle has elapsed at now and, if so,
// computes the next cycle. It advances by exactly one month per call even when
// several months are overdue; see Fold for catching up.
func CheckRenewal(now time.Time, in RenewalInput) RenewalResult {
	if !in.AutoRenew {
		return RenewalResult{}
	}

	current, ok := ParseRenewalDate(in.RenewalDate, now.Location())
	if !ok {
		return RenewalResult{}
	}
	if current.After(now) {
		return RenewalResult{}
	}

	balance := in.Balance
	if in.ResetBalanceOnRenewal {
		rollover := 0.0
		if in.IncludeRollover {
			rollover = math.Min(in.Balance.TotalHours(), model.RolloverHours)
		}
		balance = model.BalanceFromHours(model.BaseAllowanceHours + rollover)
	}

	blocks := in.PurchasedBlocks
	if in.ClearTopUpsOnRenewal {
		blocks = 0
	}

	return RenewalResult{
		DidRenew:           true,
		NewRenewalDate:     FormatRenewalDate(AddMonths(current, 1)),
		NewBalance:         balance,
		NewPurchasedBlocks: blocks,
	}
}

// Apply folds a triggered renewal into st. A no-op result returns st unchanged.
func (r RenewalResult) Apply(st model.State) model.State {
	if !r.DidRenew {
		return st
	}
	st.RenewalDate = r.NewRenewalDate
	st.Balance = r.NewBalance
	st.PurchasedBlocks = r.NewPurchasedBlocks
	return st
}
