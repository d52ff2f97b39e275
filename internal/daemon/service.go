// Package daemon provides the long-running allowance monitor: it checks for
// renewals on a cron schedule and serves status, events and Prometheus metrics.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/theirongolddev/gburn/internal/model"
	"github.com/theirongolddev/gburn/internal/tracker"
)

// Event types.
const (
	EventSnapshot     = "snapshot"
	EventRenewal      = "renewal"
	EventMetricsDelta = "metrics_delta"
)

// Refresher is the tracker operation the daemon polls. *tracker.Tracker implements it.
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) (tracker.Snapshot, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Schedule     string // cron spec, e.g. "@every 1m" or "*/5 * * * *"
	EventsBuffer int
	DBPath       string
}

// Snapshot is a compact allowance state for status and event payloads.
type Snapshot struct {
	At                      time.Time `json:"at"`
	Plan                    string    `json:"plan"`
	BillingCycle            string    `json:"billing_cycle"`
	RenewalDate             string    `json:"renewal_date"`
	BalanceHours            float64   `json:"balance_hours"`
	EffectiveHours          float64   `json:"effective_hours"`
	DaysRemaining           int       `json:"days_remaining"`
	BudgetPerDay            float64   `json:"budget_per_day_hours"`
	TotalCostUSD            float64   `json:"total_cost_usd"`
	EstimatedMonthlyCostUSD float64   `json:"estimated_monthly_cost_usd"`
	PurchasedBlocks         int       `json:"purchased_blocks"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	BalanceHours            float64 `json:"balance_hours"`
	EffectiveHours          float64 `json:"effective_hours"`
	DaysRemaining           int     `json:"days_remaining"`
	BudgetPerDay            float64 `json:"budget_per_day_hours"`
	EstimatedMonthlyCostUSD float64 `json:"estimated_monthly_cost_usd"`
	PurchasedBlocks         int     `json:"purchased_blocks"`
}

func (d Delta) isZero() bool {
	return d.BalanceHours == 0 &&
		d.EffectiveHours == 0 &&
		d.DaysRemaining == 0 &&
		d.BudgetPerDay == 0 &&
		d.EstimatedMonthlyCostUSD == 0 &&
		d.PurchasedBlocks == 0
}

// Event is emitted on the first poll, on renewals and whenever metrics change.
type Event struct {
	ID        int64                `json:"id"`
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Snapshot  Snapshot             `json:"snapshot"`
	Delta     Delta                `json:"delta"`
	Renewals  []model.RenewalEvent `json:"renewals,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	NextPollAt      time.Time `json:"next_poll_at,omitempty"`
	Schedule        string    `json:"schedule"`
	PollCount       int64     `json:"poll_count"`
	RenewalCount    int64     `json:"renewal_count"`
	DBPath          string    `json:"db_path,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	tracker Refresher
	log     *zap.Logger
	now     func() time.Time

	registry *prometheus.Registry
	metrics  *metricSet
	cron     *cron.Cron
	entry    cron.EntryID

	mu           sync.RWMutex
	startedAt    time.Time
	lastPollAt   time.Time
	pollCount    int64
	renewalCount int64
	lastError    string
	hasSnapshot  bool
	snapshot     Snapshot
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service polling tr. A nil logger discards.
func New(cfg Config, tr Refresher, log *zap.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8797"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if log == nil {
		log = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	jobLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Service{
		cfg:       cfg,
		tracker:   tr,
		log:       log,
		now:       time.Now,
		registry:  reg,
		metrics:   newMetricSet(reg),
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(jobLog))),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/events", s.handleEvents)
	r.Get("/v1/stream", s.handleStream)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	return r
}

// Run starts HTTP endpoints and the renewal schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if _, err := s.schedule(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)
	s.cron.Start()
	s.log.Info("daemon started", zap.String("addr", s.cfg.Addr), zap.String("schedule", s.cfg.Schedule))

	select {
	case <-ctx.Done():
		<-s.cron.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("daemon stopping")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.cron.Stop()
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// schedule registers the renewal check. A tick that fires while the previous
// check is still running is skipped.
func (s *Service) schedule(ctx context.Context) (cron.EntryID, error) {
	entry, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.pollOnce(ctx) })
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", s.cfg.Schedule, err)
	}
	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()
	return entry, nil
}

func (s *Service) pollOnce(ctx context.Context) {
	now := s.now()
	snap, err := s.tracker.Refresh(ctx, now)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.metrics.pollErrorsTotal.Inc()
		s.log.Error("refresh failed", zap.Error(err))
		return
	}

	curr := snapshotFrom(snap)
	s.metrics.observe(curr, len(snap.Renewals))

	var publish []Event

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = curr
	s.lastPollAt = now
	s.pollCount++
	s.renewalCount += int64(len(snap.Renewals))
	s.lastError = ""

	delta := diffSnapshots(prev, curr)
	switch {
	case !prevExists:
		publish = append(publish, s.newEventLocked(EventSnapshot, now, curr, Delta{}, nil))
	case !delta.isZero():
		publish = append(publish, s.newEventLocked(EventMetricsDelta, now, curr, delta, nil))
	}
	if snap.Renewed() {
		publish = append(publish, s.newEventLocked(EventRenewal, now, curr, delta, snap.Renewals))
	}
	s.mu.Unlock()

	for _, ev := range publish {
		s.publishEvent(ev)
	}
	if snap.Renewed() {
		s.log.Info("renewal applied",
			zap.Int("cycles", len(snap.Renewals)),
			zap.String("renewal_date", curr.RenewalDate),
			zap.Float64("balance_hours", curr.BalanceHours))
	} else {
		s.log.Debug("refreshed", zap.Int("days_remaining", curr.DaysRemaining))
	}
}

func (s *Service) newEventLocked(typ string, at time.Time, snap Snapshot, delta Delta, renewals []model.RenewalEvent) Event {
	s.nextEventID++
	return Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: at,
		Snapshot:  snap,
		Delta:     delta,
		Renewals:  renewals,
	}
}

func snapshotFrom(snap tracker.Snapshot) Snapshot {
	st, m := snap.State, snap.Metrics
	return Snapshot{
		At:                      snap.At,
		Plan:                    m.Plan.Key,
		BillingCycle:            string(st.BillingCycle),
		RenewalDate:             st.RenewalDate,
		BalanceHours:            m.TotalCurrentHours,
		EffectiveHours:          m.EffectiveHours,
		DaysRemaining:           m.DaysRemaining,
		BudgetPerDay:            m.BudgetPerDay,
		TotalCostUSD:            m.TotalCost,
		EstimatedMonthlyCostUSD: m.EstimatedMonthlyCost,
		PurchasedBlocks:         st.PurchasedBlocks,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		BalanceHours:            curr.BalanceHours - prev.BalanceHours,
		EffectiveHours:          curr.EffectiveHours - prev.EffectiveHours,
		DaysRemaining:           curr.DaysRemaining - prev.DaysRemaining,
		BudgetPerDay:            curr.BudgetPerDay - prev.BudgetPerDay,
		EstimatedMonthlyCostUSD: curr.EstimatedMonthlyCostUSD - prev.EstimatedMonthlyCostUSD,
		PurchasedBlocks:         curr.PurchasedBlocks - prev.PurchasedBlocks,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		Schedule:        s.cfg.Schedule,
		PollCount:       s.pollCount,
		RenewalCount:    s.renewalCount,
		DBPath:          s.cfg.DBPath,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.entry != 0 {
		st.NextPollAt = s.cron.Entry(s.entry).Next
	}
	return st
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	current := Event{
		Type:      EventSnapshot,
		Timestamp: s.now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
