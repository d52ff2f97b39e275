package store

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/gburn/internal/model"
)

// EncodeState serializes the record in the interchange format.
func EncodeState(st model.State) ([]byte, error) {
	return json.MarshalIndent(st, "", "  ")
}

// DecodeState parses a stored or imported record. Each field that is missing,
// null or of the wrong type falls back to its default independently; unparseable
// input yields DefaultState. Balance parts accept numeric strings.
func DecodeState(data []byte) model.State {
	st := model.DefaultState()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return st
	}

	if s, ok := decodeString(fields["plan"]); ok && strings.TrimSpace(s) != "" {
		st.Plan = strings.TrimSpace(s)
	}
	if s, ok := decodeString(fields["billingCycle"]); ok {
		if c, ok := model.ParseBillingCycle(s); ok {
			st.BillingCycle = c
		}
	}
	if s, ok := decodeString(fields["renewalDate"]); ok {
		st.RenewalDate = strings.TrimSpace(s)
	}

	var balance map[string]json.RawMessage
	if raw, ok := fields["balance"]; ok && json.Unmarshal(raw, &balance) == nil {
		if h, ok := decodeNumber(balance["hours"]); ok {
			st.Balance.Hours = h
		}
		if m, ok := decodeNumber(balance["minutes"]); ok {
			st.Balance.Minutes = m
		}
	}

	if n, ok := decodeNumber(fields["purchasedBlocks"]); ok {
		st.PurchasedBlocks = max(0, int(math.Round(n)))
	}

	decodeBool(fields["excludeRollover"], &st.ExcludeRollover)
	decodeBool(fields["autoRenew"], &st.AutoRenew)
	decodeBool(fields["resetBalanceOnRenewal"], &st.ResetBalanceOnRenewal)
	decodeBool(fields["includeRollover"], &st.IncludeRollover)
	decodeBool(fields["clearTopUpsOnRenewal"], &st.ClearTopUpsOnRenewal)

	return st
}

// absent reports a missing field or an explicit null.
func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if absent(raw) || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// decodeNumber accepts JSON numbers and numeric strings. Non-finite values are rejected.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	if absent(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		s, ok := decodeString(raw)
		if !ok {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, true
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func decodeBool(raw json.RawMessage, dst *bool) {
	var b bool
	if !absent(raw) && json.Unmarshal(raw, &b) == nil {
		*dst = b
	}
}
