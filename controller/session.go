// Package controller drives the dashboard: it loads the policy snapshot of a
// session once, recomputes the chart whenever the filters change and keeps
// exactly one chart alive per session.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"polizas-dashboard/models"
	"polizas-dashboard/render"
	"polizas-dashboard/services"
	"polizas-dashboard/storage"
	"polizas-dashboard/utils"
)

// ErrNoChart is returned when a session has no live chart.
var ErrNoChart = errors.New("no chart rendered")

// Options configures a Session.
type Options struct {
	Source  storage.PolicySource
	Query   storage.PolicyQuery
	Surface render.Surface
	Chart   services.ChartOptions
	// Filters is the control state before the user touches anything.
	Filters      models.FilterState
	FetchTimeout time.Duration
	Logger       *utils.Logger
	Metrics      *utils.Metrics
	// Now is the reference clock for the next-month filter.
	Now func() time.Time
}

// Session is the state of one dashboard: the fetched snapshot, the current
// filters and the live chart.
type Session struct {
	id      string
	opts    Options
	cleaner *services.Cleaner
	chart   *ChartHandle
	loads   singleflight.Group

	mu       sync.Mutex
	state    models.ViewState
	snapshot *models.Snapshot
	filters  models.FilterState
	view     models.DashboardView
}

// NewSession creates an idle session. Nothing is fetched until Load.
func NewSession(id string, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.DefaultMetrics()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Surface == nil {
		opts.Surface = render.NewConfigSurface()
	}
	if opts.Chart == (services.ChartOptions{}) {
		opts.Chart = services.DefaultChartOptions()
	}
	if opts.Filters.Kind == "" {
		opts.Filters.Kind = models.ChartLines
	}

	s := &Session{
		id:      id,
		opts:    opts,
		cleaner: services.NewCleaner(opts.Logger),
		chart:   NewChartHandle(opts.Surface),
		state:   models.StateIdle,
		filters: opts.Filters,
	}
	s.view = models.DashboardView{State: models.StateIdle, Filters: opts.Filters}
	return s
}

func (s *Session) ID() string { return s.id }

// State returns the controller state.
func (s *Session) State() models.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the last rendered view.
func (s *Session) View() models.DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Chart returns the live chart.
func (s *Session) Chart() (render.Instance, error) {
	inst := s.chart.Current()
	if inst == nil {
		return nil, ErrNoChart
	}
	return inst, nil
}

// Load fetches the snapshot and renders it with the current filters.
// Concurrent calls share a single fetch. A failed fetch is logged, leaves an
// empty snapshot and moves the session to the error state; it is not
// returned as an error.
func (s *Session) Load(ctx context.Context) models.DashboardView {
	v, _, _ := s.loads.Do("load", func() (any, error) {
		return s.load(ctx), nil
	})
	return v.(models.DashboardView)
}

func (s *Session) load(ctx context.Context) models.DashboardView {
	s.mu.Lock()
	s.state = models.StateLoading
	s.view.State = models.StateLoading
	s.mu.Unlock()

	fetchCtx := ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	s.opts.Logger.Info("[session %s] Loading policies", s.id)
	rows, err := s.opts.Source.FetchPolicies(fetchCtx, s.opts.Query)
	s.opts.Metrics.RecordLoad(ctx, err)

	state := models.StateRendered
	var policies []*models.PolicyRecord
	if err != nil {
		s.opts.Logger.Error("[session %s] Fetch failed, showing empty dashboard: %v", s.id, err)
		state = models.StateError
	} else {
		policies = s.cleaner.Clean(rows)
		s.opts.Logger.Info("[session %s] Loaded %d policies", s.id, len(policies))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &models.Snapshot{Policies: policies, FetchedAt: s.opts.Now()}
	s.state = state
	s.renderLocked(ctx, s.filters)
	return s.view
}

// Apply changes the filters and re-renders from the cached snapshot. With no
// registration type selected it is a no-op that keeps the previous chart.
// Before the first load completes the filters are stored for that load.
func (s *Session) Apply(ctx context.Context, f models.FilterState) (models.DashboardView, error) {
	kind, err := models.ParseChartKind(string(f.Kind))
	if err != nil {
		return s.View(), err
	}
	f.Kind = kind

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(services.NewTypeSet(f.RegistrationTypes...)) == 0 {
		s.opts.Logger.Debug("[session %s] No registration type selected, keeping chart", s.id)
		return s.view, nil
	}

	s.filters = f
	if s.snapshot == nil {
		s.view.Filters = f
		return s.view, nil
	}
	s.renderLocked(ctx, f)
	return s.view, nil
}

// Aggregation recomputes the aggregation for the current filters.
func (s *Session) Aggregation() *models.Aggregation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregateLocked(s.filters)
}

// Policies returns the cached snapshot.
func (s *Session) Policies() []*models.PolicyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	return append([]*models.PolicyRecord(nil), s.snapshot.Policies...)
}

// Close releases the live chart.
func (s *Session) Close() error {
	return s.chart.Release()
}

func (s *Session) aggregateLocked(f models.FilterState) *models.Aggregation {
	var policies []*models.PolicyRecord
	if s.snapshot != nil {
		policies = s.snapshot.Policies
	}
	return services.Aggregate(policies, services.NewTypeSet(f.RegistrationTypes...), f.NextMonthOnly, s.opts.Now())
}

func (s *Session) renderLocked(ctx context.Context, f models.FilterState) {
	agg := s.aggregateLocked(f)
	for _, w := range agg.Warnings {
		s.opts.Logger.Warn("[session %s] %s", s.id, w)
	}
	s.opts.Metrics.RecordSkipped(ctx, len(agg.Warnings))

	view := models.DashboardView{
		State:    s.state,
		Filters:  f,
		Stats:    services.Summarize(s.snapshot.Policies),
		Warnings: agg.Warnings,
	}

	cfg, err := services.BuildChartConfig(f.Kind, agg, s.opts.Chart)
	if err == nil {
		_, err = s.chart.Replace(cfg)
	}
	if err != nil {
		s.opts.Logger.Error("[session %s] Render failed: %v", s.id, err)
		view.Warnings = append(view.Warnings, err.Error())
	} else {
		view.Chart = cfg
		s.opts.Metrics.RecordRender(ctx, string(f.Kind))
	}
	s.view = view
}
