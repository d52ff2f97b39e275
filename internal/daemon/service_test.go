package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/gburn/internal/billing"
	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
)

type fakeRefresher struct {
	snaps []tracker.Snapshot
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(_ context.Context, now time.Time) (tracker.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return tracker.Snapshot{}, f.err
	}
	i := min(f.calls-1, len(f.snaps)-1)
	snap := f.snaps[i]
	snap.At = now
	return snap, nil
}

func snapFor(st model.State, now time.Time, renewals ...model.RenewalEvent) tracker.Snapshot {
	return tracker.Snapshot{
		State:    st,
		Metrics:  billing.Calculate(st, now),
		Renewals: renewals,
		At:       now,
	}
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

func newTestService(t *testing.T, f *fakeRefresher, buffer int) *Service {
	t.Helper()
	s := New(Config{EventsBuffer: buffer}, f, nil)
	s.now = func() time.Time { return testNow }
	return s
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{BalanceHours: 40, EffectiveHours: 25, DaysRemaining: 10, BudgetPerDay: 2.5, EstimatedMonthlyCostUSD: 9.99}
	curr := Snapshot{BalanceHours: 37.5, EffectiveHours: 22.5, DaysRemaining: 9, BudgetPerDay: 2.5, EstimatedMonthlyCostUSD: 12.98, PurchasedBlocks: 1}

	delta := diffSnapshots(prev, curr)
	assert.Equal(t, -2.5, delta.BalanceHours)
	assert.Equal(t, -1, delta.DaysRemaining)
	assert.Equal(t, 1, delta.PurchasedBlocks)
	assert.Zero(t, delta.BudgetPerDay)
	assert.True(t, math.Abs(delta.EstimatedMonthlyCostUSD-2.99) < 1e-9)
	assert.False(t, delta.isZero())
	assert.True(t, diffSnapshots(curr, curr).isZero())
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, &fakeRefresher{}, 2)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	require.Len(t, s.events, 2)
	assert.Equal(t, int64(2), s.events[0].ID)
	assert.Equal(t, int64(3), s.events[1].ID)
}

func TestPollOnce_Events(t *testing.T) {
	st := model.DefaultState()
	st.RenewalDate = "2024-03-11T12:00"

	topped := st
	topped.PurchasedBlocks = 1

	renewed := topped
	renewed.RenewalDate = "2024-04-11T12:00"
	renewed.PurchasedBlocks = 0

	f := &fakeRefresher{snaps: []tracker.Snapshot{
		snapFor(st, testNow),
		snapFor(st, testNow),
		snapFor(topped, testNow),
		snapFor(renewed, testNow, model.RenewalEvent{ID: "r1", NewDate: renewed.RenewalDate}),
	}}
	s := newTestService(t, f, 10)
	ctx := context.Background()

	for range 4 {
		s.pollOnce(ctx)
	}

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	status := s.snapshot
	renewals := s.renewalCount
	s.mu.RUnlock()

	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []string{EventSnapshot, EventMetricsDelta, EventMetricsDelta, EventRenewal}, types)
	assert.Equal(t, 1, events[1].Delta.PurchasedBlocks)
	require.Len(t, events[3].Renewals, 1)
	assert.Equal(t, "r1", events[3].Renewals[0].ID)
	assert.Equal(t, "2024-04-11T12:00", status.RenewalDate)
	assert.Equal(t, int64(1), renewals)
}

func TestPollOnce_ErrorKeepsLastSnapshot(t *testing.T) {
	st := model.DefaultState()
	f := &fakeRefresher{snaps: []tracker.Snapshot{snapFor(st, testNow)}}
	s := newTestService(t, f, 10)

	s.pollOnce(context.Background())
	f.err = errors.New("database is locked")
	s.pollOnce(context.Background())

	status := s.snapshotStatus()
	assert.Equal(t, "database is locked", status.LastError)
	assert.Equal(t, int64(2), status.PollCount)
	assert.Equal(t, 100.0, status.Summary.BalanceHours)
}

func TestHTTPEndpoints(t *testing.T) {
	st := model.DefaultState()
	st.RenewalDate = "2024-03-11T12:00"
	s := newTestService(t, &fakeRefresher{snaps: []tracker.Snapshot{snapFor(st, testNow)}}, 10)
	s.pollOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body)

	resp, body = get("/v1/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status Status
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, 10, status.Summary.DaysRemaining)
	assert.Equal(t, 10.0, status.Summary.BudgetPerDay)
	assert.Equal(t, "@every 1m", status.Schedule)

	_, body = get("/v1/events")
	var events []Event
	require.NoError(t, json.Unmarshal([]byte(body), &events))
	require.Len(t, events, 1)
	assert.Equal(t, EventSnapshot, events[0].Type)

	_, body = get("/metrics")
	assert.Contains(t, body, "gburn_allowance_balance_hours 100")
	assert.Contains(t, body, "gburn_allowance_days_remaining 10")
	assert.Contains(t, body, "gburn_renewal_applied_total 0")

	resp, _ = get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	s := newTestService(t, &fakeRefresher{snaps: []tracker.Snapshot{snapFor(model.DefaultState(), testNow)}}, 10)
	s.pollOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	first := string(buf[:n])
	assert.True(t, strings.HasPrefix(first, "event: snapshot\n"), first)
	assert.Contains(t, first, `"balance_hours":100`)
}

// blockingRefresher holds every Refresh until release is closed.
type blockingRefresher struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRefresher) Refresh(_ context.Context, now time.Time) (tracker.Snapshot, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return snapFor(model.DefaultState(), now), nil
}

func TestScheduleSkipsOverlappingTicks(t *testing.T) {
	b := &blockingRefresher{entered: make(chan struct{}, 2), release: make(chan struct{})}
	s := New(Config{Schedule: "@every 1h"}, b, nil)
	s.now = func() time.Time { return testNow }

	id, err := s.schedule(context.Background())
	require.NoError(t, err)
	job := s.cron.Entry(id).WrappedJob

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Run()
	}()
	<-b.entered

	job.Run() // returns at once: the first tick is still running
	close(b.release)
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
	assert.Equal(t, int64(1), s.snapshotStatus().PollCount)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	s := New(Config{Schedule: "every now and then"}, &fakeRefresher{}, nil)
	_, err := s.schedule(context.Background())
	assert.ErrorContains(t, err, "invalid schedule")
}
