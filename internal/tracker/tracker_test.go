package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/gburn/internal/config"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/store"
)

type memStore struct {
	state    *model.State
	history  []model.RenewalEvent
	saves    int
	loadErr  error
	writeErr error
}

func (m *memStore) LoadState(context.Context) (model.State, error) {
	if m.loadErr != nil {
		return model.State{}, m.loadErr
	}
	if m.state == nil {
		return model.DefaultState(), nil
	}
	return *m.state, nil
}

func (m *memStore) SaveState(_ context.Context, st model.State) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.saves++
	m.state = &st
	return nil
}

func (m *memStore) SaveRenewals(ctx context.Context, st model.State, events []model.RenewalEvent) error {
	if err := m.SaveState(ctx, st); err != nil {
		return err
	}
	m.history = append(m.history, events...)
	return nil
}

func (m *memStore) Renewals(_ context.Context, limit int) ([]model.RenewalEvent, error) {
	out := make([]model.RenewalEvent, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0; i-- {
		out = append(out, m.history[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestTracker(ms *memStore, opts ...Option) *Tracker {
	tr := New(ms, config.Plans(config.DefaultConfig()), opts...)
	n := 0
	tr.newID = func(time.Time) string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return tr
}

func overdue() *model.State {
	st := model.DefaultState()
	st.RenewalDate = "2024-01-05T10:00"
	st.Balance = model.Balance{Hours: 8, Minutes: 30}
	st.PurchasedBlocks = 2
	return &st
}

var now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.Local)

func TestRefresh_NoRecordUsesDefaults(t *testing.T) {
	ms := &memStore{}
	snap, err := newTestTracker(ms).Refresh(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, model.DefaultState(), snap.State)
	assert.False(t, snap.Renewed())
	assert.Equal(t, 0, ms.saves, "nothing to persist")
	assert.Equal(t, 100.0, snap.Metrics.TotalCurrentHours)
}

func TestRefresh_SingleStep(t *testing.T) {
	ms := &memStore{state: overdue()}
	snap, err := newTestTracker(ms).Refresh(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, snap.Renewals, 1)
	assert.Equal(t, "2024-02-05T10:00", snap.State.RenewalDate)
	assert.Equal(t, model.Balance{Hours: 108, Minutes: 30}, snap.State.Balance)
	assert.Equal(t, 0, snap.State.PurchasedBlocks)

	ev := snap.Renewals[0]
	assert.Equal(t, "id-1", ev.ID)
	assert.Equal(t, "2024-01-05T10:00", ev.PreviousDate)
	assert.Equal(t, 2, ev.PreviousBlocks)
	assert.Equal(t, now, ev.AppliedAt)

	assert.Equal(t, snap.State, *ms.state)
	assert.Len(t, ms.history, 1)
}

func TestRefresh_CatchUp(t *testing.T) {
	ms := &memStore{state: overdue()}
	snap, err := newTestTracker(ms, WithCatchUp(true)).Refresh(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, snap.Renewals, 3)
	assert.Equal(t, "2024-04-05T10:00", snap.State.RenewalDate)
	assert.Equal(t, model.Balance{Hours: 115}, snap.State.Balance)
	assert.Equal(t, snap.Renewals[0].NewDate, snap.Renewals[1].PreviousDate)
	assert.Equal(t, 16, snap.Metrics.DaysRemaining)
}

func TestRenew_Explicit(t *testing.T) {
	ms := &memStore{state: overdue()}
	tr := newTestTracker(ms)

	snap, err := tr.Renew(context.Background(), now, true)
	require.NoError(t, err)
	assert.Len(t, snap.Renewals, 3)

	snap, err = tr.Renew(context.Background(), now, true)
	require.NoError(t, err)
	assert.False(t, snap.Renewed())

	history, err := tr.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "id-3", history[0].ID)
}

func TestRefresh_Errors(t *testing.T) {
	boom := errors.New("disk on fire")

	_, err := newTestTracker(&memStore{loadErr: boom}).Refresh(context.Background(), now)
	assert.ErrorIs(t, err, boom)

	_, err = newTestTracker(&memStore{state: overdue(), writeErr: boom}).Refresh(context.Background(), now)
	assert.ErrorIs(t, err, boom)
}

func TestUpdate(t *testing.T) {
	ms := &memStore{}
	tr := newTestTracker(ms)
	ctx := context.Background()

	snap, err := tr.Update(ctx, now, Chain(
		SetPlan(tr.Plans(), "Ultimate", "yearly"),
		AdjustTopUps(2),
		SetExcludeRollover(true),
	))
	require.NoError(t, err)
	assert.Equal(t, "ultimate", snap.State.Plan)
	assert.Equal(t, model.Yearly, snap.State.BillingCycle)
	assert.InDelta(t, 199.99+2*5.99, snap.Metrics.TotalCost, 1e-9)
	assert.Equal(t, 85.0, snap.Metrics.EffectiveHours)

	snap, err = tr.Update(ctx, now, AdjustTopUps(-5))
	require.NoError(t, err)
	assert.Equal(t, 0, snap.State.PurchasedBlocks)

	_, err = tr.Update(ctx, now, SetPlan(tr.Plans(), "premium", ""))
	assert.ErrorIs(t, err, config.ErrInvalidPlan)
	assert.Equal(t, "ultimate", ms.state.Plan, "failed edit not saved")
}

func TestUpdate_RenewalSettings(t *testing.T) {
	ms := &memStore{}
	tr := newTestTracker(ms)
	off := false

	snap, err := tr.Update(context.Background(), now, Chain(
		SetRenewalDate("2024-04-01 09:30"),
		SetRenewalFlags(RenewalFlags{AutoRenew: &off, IncludeRollover: &off}),
	))
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01T09:30", snap.State.RenewalDate)
	assert.False(t, snap.State.AutoRenew)
	assert.False(t, snap.State.IncludeRollover)
	assert.True(t, snap.State.ResetBalanceOnRenewal)

	_, err = tr.Update(context.Background(), now, SetRenewalDate("next tuesday"))
	assert.Error(t, err)

	snap, err = tr.Update(context.Background(), now, SetRenewalDate(""))
	require.NoError(t, err)
	assert.Empty(t, snap.State.RenewalDate)
}

func TestParseBalance(t *testing.T) {
	b, err := ParseBalance("12", "30")
	require.NoError(t, err)
	assert.Equal(t, model.Balance{Hours: 12, Minutes: 30}, b)

	b, err = ParseBalance(" 7.5 ", "")
	require.NoError(t, err)
	assert.Equal(t, model.Balance{Hours: 7.5}, b)

	for _, bad := range [][2]string{{"-1", "0"}, {"abc", ""}, {"1", "NaN"}, {"Inf", "0"}} {
		_, err := ParseBalance(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidBalance, "%v", bad)
	}
}

func TestImportExport(t *testing.T) {
	tr := newTestTracker(&memStore{})
	ctx := context.Background()

	snap, err := tr.Import(ctx, now, []byte(`{"plan":"ultimate","balance":{"hours":"20","minutes":15},"purchasedBlocks":-3}`))
	require.NoError(t, err)
	assert.Equal(t, "ultimate", snap.State.Plan)
	assert.Equal(t, model.Balance{Hours: 20, Minutes: 15}, snap.State.Balance)
	assert.Equal(t, 0, snap.State.PurchasedBlocks)

	data, err := tr.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.State, store.DecodeState(data))
}

func TestTracker_WithSQLiteStore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "gburn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tr := New(s, nil)
	ctx := context.Background()
	_, err = tr.Replace(ctx, now, *overdue())
	require.NoError(t, err)

	snap, err := tr.Refresh(ctx, now)
	require.NoError(t, err)
	require.True(t, snap.Renewed())
	assert.Len(t, snap.Renewals[0].ID, 26)

	history, err := tr.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, snap.Renewals[0].ID, history[0].ID)
}

func TestTracker_CatchUpHistoryNewestFirst(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "gburn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	tr := New(s, nil)
	st := model.DefaultState()
	st.RenewalDate = "2023-01-01T00:00"
	_, err = tr.Replace(ctx, now, st)
	require.NoError(t, err)

	snap, err := tr.Renew(ctx, time.Date(2023, 6, 15, 0, 0, 0, 0, time.Local), true)
	require.NoError(t, err)
	require.Len(t, snap.Renewals, 6)
	for i := 1; i < len(snap.Renewals); i++ {
		assert.Less(t, snap.Renewals[i-1].ID, snap.Renewals[i].ID, "ids follow application order")
	}

	history, err := tr.History(ctx, 0)
	require.NoError(t, err)
	var got []string
	for _, ev := range history {
		got = append(got, ev.NewDate)
	}
	assert.Equal(t, []string{
		"2023-07-01T00:00", "2023-06-01T00:00", "2023-05-01T00:00",
		"2023-04-01T00:00", "2023-03-01T00:00", "2023-02-01T00:00",
	}, got)
}

// gatedStore parks the first LoadState until release is closed.
type gatedStore struct {
	*memStore
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (g *gatedStore) LoadState(ctx context.Context) (model.State, error) {
	st, err := g.memStore.LoadState(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.loaded)
		<-g.release
	}
	return st, err
}

func TestRefreshAndUpdateDoNotLoseWrites(t *testing.T) {
	st := model.DefaultState()
	st.RenewalDate = "2024-03-01T00:00"
	st.ClearTopUpsOnRenewal = false
	g := &gatedStore{
		memStore: &memStore{state: &st},
		loaded:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	tr := New(g, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := tr.Refresh(ctx, now)
		assert.NoError(t, err)
	}()
	<-g.loaded
	go func() {
		defer wg.Done()
		_, err := tr.Update(ctx, now, AdjustTopUps(3))
		assert.NoError(t, err)
	}()
	time.Sleep(50 * time.Millisecond)
	close(g.release)
	wg.Wait()

	assert.Equal(t, 3, g.state.PurchasedBlocks)
	assert.Equal(t, "2024-04-01T00:00", g.state.RenewalDate)
	assert.Len(t, g.history, 1)
}
