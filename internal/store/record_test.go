package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theirongolddev/gburn/internal/model"
)

func TestDecodeState_PerFieldDefaults(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want func(*model.State)
	}{
		{"empty object", `{}`, func(*model.State) {}},
		{"garbage", `[1,2,3]`, func(*model.State) {}},
		{"null", `null`, func(*model.State) {}},
		{"plan only", `{"plan":"ultimate"}`, func(s *model.State) { s.Plan = "ultimate" }},
		{"plan wrong type", `{"plan":7,"purchasedBlocks":2}`, func(s *model.State) { s.PurchasedBlocks = 2 }},
		{"legacy record", `{"plan":"performance","balance":{"hours":12,"minutes":5},"renewalDate":"2024-05-01T09:00","purchasedBlocks":1,"excludeRollover":true}`,
			func(s *model.State) {
				s.Balance = model.Balance{Hours: 12, Minutes: 5}
				s.RenewalDate = "2024-05-01T09:00"
				s.PurchasedBlocks = 1
				s.ExcludeRollover = true
			}},
		{"balance hours only", `{"balance":{"hours":7}}`, func(s *model.State) { s.Balance = model.Balance{Hours: 7} }},
		{"balance minutes only", `{"balance":{"minutes":30}}`, func(s *model.State) { s.Balance = model.Balance{Hours: 100, Minutes: 30} }},
		{"balance null parts", `{"balance":{"hours":null,"minutes":null}}`, func(*model.State) {}},
		{"balance strings", `{"balance":{"hours":"12","minutes":" 45 "}}`, func(s *model.State) { s.Balance = model.Balance{Hours: 12, Minutes: 45} }},
		{"balance empty string", `{"balance":{"hours":"","minutes":"abc"}}`, func(s *model.State) { s.Balance = model.Balance{Hours: 0} }},
		{"balance not object", `{"balance":"lots"}`, func(*model.State) {}},
		{"negative blocks", `{"purchasedBlocks":-4}`, func(*model.State) {}},
		{"string blocks", `{"purchasedBlocks":"3"}`, func(s *model.State) { s.PurchasedBlocks = 3 }},
		{"yearly cycle", `{"billingCycle":"YEARLY"}`, func(s *model.State) { s.BillingCycle = model.Yearly }},
		{"unknown cycle", `{"billingCycle":"weekly"}`, func(*model.State) {}},
		{"flags off", `{"autoRenew":false,"resetBalanceOnRenewal":false,"includeRollover":false,"clearTopUpsOnRenewal":false}`,
			func(s *model.State) {
				s.AutoRenew = false
				s.ResetBalanceOnRenewal = false
				s.IncludeRollover = false
				s.ClearTopUpsOnRenewal = false
			}},
		{"flag wrong type", `{"autoRenew":"no"}`, func(*model.State) {}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := model.DefaultState()
			tc.want(&want)
			assert.Equal(t, want, DecodeState([]byte(tc.in)))
		})
	}
}

func TestEncodeState_UsesRecordFieldNames(t *testing.T) {
	data, err := EncodeState(model.DefaultState())
	assert.NoError(t, err)
	for _, key := range []string{`"plan"`, `"billingCycle"`, `"balance"`, `"hours"`, `"renewalDate"`, `"purchasedBlocks"`, `"excludeRollover"`, `"clearTopUpsOnRenewal"`} {
		assert.Contains(t, string(data), key)
	}
	assert.Equal(t, model.DefaultState(), DecodeState(data))
}
