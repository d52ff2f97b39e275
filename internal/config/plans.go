package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/gburn/internal/model"
)

// DefaultPlans maps plan keys to their list pricing (late 2024 / early 2025).
var DefaultPlans = map[string]model.Plan{
	"performance": {
		Key:          "performance",
		Name:         "Performance",
		MonthlyPrice: 9.99,
		YearlyPrice:  99.99,
		TopUpPrice:   2.99,
		Color:        "#D0A215",
	},
	"ultimate": {
		Key:          "ultimate",
		Name:         "Ultimate",
		MonthlyPrice: 19.99,
		YearlyPrice:  199.99,
		TopUpPrice:   5.99,
		Color:        "#879A39",
	},
}

// ErrInvalidPlan is returned when a user names a plan that is not in the table.
var ErrInvalidPlan = errors.New("invalid plan")

// PlanTable resolves plan keys to plans. Unknown keys fall back to performance.
type PlanTable map[string]model.Plan

// Plans returns the default plan table with any configured price overrides applied.
func Plans(cfg Config) PlanTable {
	table := make(PlanTable, len(DefaultPlans))
	for key, p := range DefaultPlans {
		table[key] = p
	}

	for rawKey, o := range cfg.Pricing.Overrides {
		key := NormalizePlanKey(rawKey)
		p, ok := table[key]
		if !ok {
			continue
		}
		if o.MonthlyPrice != nil {
			p.MonthlyPrice = *o.MonthlyPrice
		}
		if o.YearlyPrice != nil {
			p.YearlyPrice = *o.YearlyPrice
		}
		if o.TopUpPrice != nil {
			p.TopUpPrice = *o.TopUpPrice
		}
		table[key] = p
	}
	return table
}

// NormalizePlanKey lowercases and trims a plan identifier.
// e.g., " Ultimate " -> "ultimate"
func NormalizePlanKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Has reports whether key names a known plan.
func (t PlanTable) Has(key string) bool {
	_, ok := t[NormalizePlanKey(key)]
	return ok
}

// Lookup returns the plan for key, or the performance plan if key is unknown.
func (t PlanTable) Lookup(key string) model.Plan {
	if p, ok := t[NormalizePlanKey(key)]; ok {
		return p
	}
	if p, ok := t[model.DefaultPlanKey]; ok {
		return p
	}
	return DefaultPlans[model.DefaultPlanKey]
}

// Resolve returns the normalized key for a user-supplied plan name.
// Unlike Lookup it rejects unknown names.
func (t PlanTable) Resolve(name string) (string, error) {
	key := NormalizePlanKey(name)
	if _, ok := t[key]; !ok {
		return "", fmt.Errorf("%w %q (known: %s)", ErrInvalidPlan, name, strings.Join(t.Keys(), ", "))
	}
	return key, nil
}

// Keys returns the plan keys ordered by monthly price.
func (t PlanTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := t[keys[i]], t[keys[j]]
		if pi.MonthlyPrice != pj.MonthlyPrice {
			return pi.MonthlyPrice < pj.MonthlyPrice
		}
		return keys[i] < keys[j]
	})
	return keys
}

// LookupPlan resolves key against the default plan table.
func LookupPlan(key string) model.Plan {
	return PlanTable(DefaultPlans).Lookup(key)
}
