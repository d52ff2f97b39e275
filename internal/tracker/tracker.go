// Package tracker ties the store, the renewal engine and the calculator
// together. Every command, the TUI and the daemon go through a Tracker.
package tracker

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/theirongolddev/gburn/internal/billing"
	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/store"
)

// Store is the persistence the tracker needs. *store.Store implements it.
type Store interface {
	LoadState(ctx context.Context) (model.State, error)
	SaveState(ctx context.Context, st model.State) error
	SaveRenewals(ctx context.Context, st model.State, events []model.RenewalEvent) error
	Renewals(ctx context.Context, limit int) ([]model.RenewalEvent, error)
}

var _ Store = (*store.Store)(nil)

// ErrInvalidBalance is returned for negative or non-numeric balance input.
var ErrInvalidBalance = errors.New("invalid balance")

// Snapshot is the tracker state at one instant.
type Snapshot struct {
	State    model.State
	Metrics  model.Metrics
	Renewals []model.RenewalEvent // applied during this call, oldest first
	At       time.Time
}

// Renewed reports whether the call applied at least one renewal.
func (s Snapshot) Renewed() bool { return len(s.Renewals) > 0 }

// Tracker orchestrates load, renewal, save and calculation. Refresh, Renew
// and Update are serialized so concurrent callers never interleave a
// load with another caller's save.
type Tracker struct {
	mu sync.Mutex // guards the load-modify-save sequences and newID

	store   Store
	plans   config.PlanTable
	calc    billing.Calculator
	catchUp bool
	log     *zap.Logger
	newID   func(time.Time) string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCatchUp makes Refresh apply every overdue renewal instead of one.
func WithCatchUp(on bool) Option {
	return func(t *Tracker) { t.catchUp = on }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// New creates a Tracker over st using the given plan table.
func New(st Store, plans config.PlanTable, opts ...Option) *Tracker {
	if plans == nil {
		plans = config.Plans(config.DefaultConfig())
	}
	entropy := ulid.Monotonic(rand.Reader, 0)
	t := &Tracker{
		store: st,
		plans: plans,
		calc:  billing.NewCalculator(plans),
		log:   zap.NewNop(),
		// Monotonic entropy keeps IDs from one batch in application order.
		newID: func(at time.Time) string {
			return ulid.MustNew(ulid.Timestamp(at), entropy).String()
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Plans returns the plan table in use.
func (t *Tracker) Plans() config.PlanTable { return t.plans }

// Calculate derives metrics for st at now without touching the store.
func (t *Tracker) Calculate(st model.State, now time.Time) model.Metrics {
	return t.calc.Calculate(st, now)
}

// Refresh loads the record, applies due renewals, persists any change and
// returns fresh metrics. This is the load-time path.
func (t *Tracker) Refresh(ctx context.Context, now time.Time) (Snapshot, error) {
	limit := 1
	if t.catchUp {
		limit = billing.MaxCatchUp
	}
	return t.renew(ctx, now, limit)
}

// Renew runs the renewal engine explicitly. With catchUp every overdue cycle
// is applied; otherwise at most one.
func (t *Tracker) Renew(ctx context.Context, now time.Time, catchUp bool) (Snapshot, error) {
	limit := 1
	if catchUp {
		limit = billing.MaxCatchUp
	}
	return t.renew(ctx, now, limit)
}

func (t *Tracker) renew(ctx context.Context, now time.Time, limit int) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.store.LoadState(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading state: %w", err)
	}

	next, applied := billing.Fold(now, st, limit)
	events := t.events(now, st, applied)

	if len(events) > 0 {
		if err := t.store.SaveRenewals(ctx, next, events); err != nil {
			return Snapshot{}, fmt.Errorf("saving renewal: %w", err)
		}
		last := events[len(events)-1]
		t.log.Info("renewal applied",
			zap.Int("cycles", len(events)),
			zap.String("renewal_date", last.NewDate),
			zap.Float64("balance_hours", last.NewBalance.TotalHours()),
			zap.Int("top_ups", last.NewBlocks),
		)
	}

	return Snapshot{
		State:    next,
		Metrics:  t.calc.Calculate(next, now),
		Renewals: events,
		At:       now,
	}, nil
}

func (t *Tracker) events(now time.Time, prev model.State, applied []billing.RenewalResult) []model.RenewalEvent {
	if len(applied) == 0 {
		return nil
	}
	events := make([]model.RenewalEvent, 0, len(applied))
	for _, res := range applied {
		events = append(events, model.RenewalEvent{
			ID:              t.newID(now),
			AppliedAt:       now,
			PreviousDate:    prev.RenewalDate,
			NewDate:         res.NewRenewalDate,
			PreviousBalance: prev.Balance,
			NewBalance:      res.NewBalance,
			PreviousBlocks:  prev.PurchasedBlocks,
			NewBlocks:       res.NewPurchasedBlocks,
		})
		prev = res.Apply(prev)
	}
	return events
}

// Update loads the record, applies fn, saves and recalculates. Renewals are
// not run; fn sees the record as stored.
func (t *Tracker) Update(ctx context.Context, now time.Time, fn func(*model.State) error) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.store.LoadState(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading state: %w", err)
	}
	if err := fn(&st); err != nil {
		return Snapshot{}, err
	}
	if st.PurchasedBlocks < 0 {
		st.PurchasedBlocks = 0
	}
	if err := t.store.SaveState(ctx, st); err != nil {
		return Snapshot{}, fmt.Errorf("saving state: %w", err)
	}
	t.log.Debug("state updated", zap.String("plan", st.Plan), zap.String("renewal_date", st.RenewalDate))
	return Snapshot{State: st, Metrics: t.calc.Calculate(st, now), At: now}, nil
}

// Replace overwrites the stored record with st.
func (t *Tracker) Replace(ctx context.Context, now time.Time, st model.State) (Snapshot, error) {
	return t.Update(ctx, now, func(cur *model.State) error {
		*cur = st
		return nil
	})
}

// Import decodes a record in the interchange format and stores it.
func (t *Tracker) Import(ctx context.Context, now time.Time, data []byte) (Snapshot, error) {
	return t.Replace(ctx, now, store.DecodeState(data))
}

// Export returns the stored record in the interchange format.
func (t *Tracker) Export(ctx context.Context) ([]byte, error) {
	st, err := t.store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return store.EncodeState(st)
}

// History returns recorded renewals, newest first.
func (t *Tracker) History(ctx context.Context, limit int) ([]model.RenewalEvent, error) {
	events, err := t.store.Renewals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return events, nil
}
