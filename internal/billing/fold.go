package billing

import (
	"time"

	"github.com/theirongolddev/gburn/internal/model"
)

// MaxCatchUp bounds how many overdue cycles Fold applies in one go (ten years).
const MaxCatchUp = 120

// Fold runs CheckRenewal repeatedly, applying each triggered result, until the
// engine reports nothing to do or limit renewals have been applied. A limit of 1
// is the single-step behavior; limit <= 0 means MaxCatchUp.
func Fold(now time.Time, st model.State, limit int) (model.State, []RenewalResult) {
	if limit <= 0 || limit > MaxCatchUp {
		limit = MaxCatchUp
	}

	var applied []RenewalResult
	for len(applied) < limit {
		res := CheckRenewal(now, InputFromState(st))
		if !res.DidRenew {
			break
		}
		st = res.Apply(st)
		applied = append(applied, res)
	}
	return st, applied
}
