package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gburn"

// metricSet holds the allowance gauges exported on /metrics.
type metricSet struct {
	balanceHours     prometheus.Gauge
	effectiveHours   prometheus.Gauge
	daysRemaining    prometheus.Gauge
	budgetPerDay     prometheus.Gauge
	monthlyCostUSD   prometheus.Gauge
	topUpBlocks      prometheus.Gauge
	renewalsTotal    prometheus.Counter
	pollErrorsTotal  prometheus.Counter
	lastPollUnixtime prometheus.Gauge
}

func newMetricSet(reg *prometheus.Registry) *metricSet {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &metricSet{
		balanceHours: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "allowance",
			Name: "balance_hours",
			Help: "Remaining allowance in hours",
		}),
		effectiveHours: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "allowance",
			Name: "effective_hours",
			Help: "Hours available for budgeting after rollover exclusion",
		}),
		daysRemaining: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "allowance",
			Name: "days_remaining",
			Help: "Whole days until the next renewal",
		}),
		budgetPerDay: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "allowance",
			Name: "budget_hours_per_day",
			Help: "Hours that can be used per day until renewal",
		}),
		monthlyCostUSD: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "billing",
			Name: "estimated_monthly_cost_usd",
			Help: "Estimated monthly cost including top-ups",
		}),
		topUpBlocks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "billing",
			Name: "top_up_blocks",
			Help: "Top-up blocks purchased this cycle",
		}),
		renewalsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "renewal",
			Name: "applied_total",
			Help: "Renewals applied by this daemon",
		}),
		pollErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "daemon",
			Name: "poll_errors_total",
			Help: "Failed refreshes",
		}),
		lastPollUnixtime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "daemon",
			Name: "last_poll_timestamp_seconds",
			Help: "Unix time of the last refresh",
		}),
	}
}

func (m *metricSet) observe(s Snapshot, renewals int) {
	m.balanceHours.Set(s.BalanceHours)
	m.effectiveHours.Set(s.EffectiveHours)
	m.daysRemaining.Set(float64(s.DaysRemaining))
	m.budgetPerDay.Set(s.BudgetPerDay)
	m.monthlyCostUSD.Set(s.EstimatedMonthlyCostUSD)
	m.topUpBlocks.Set(float64(s.PurchasedBlocks))
	m.renewalsTotal.Add(float64(renewals))
	m.lastPollUnixtime.Set(float64(s.At.Unix()))
}
