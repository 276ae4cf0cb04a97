// Package display composes the background engine, the caches and the
// rotators into the state a kiosk renderer polls.
package display

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/message"

	"github.com/raffaelramalhorosa/smart-display/internal/background"
	"github.com/raffaelramalhorosa/smart-display/internal/config"
	"github.com/raffaelramalhorosa/smart-display/internal/forecast"
	"github.com/raffaelramalhorosa/smart-display/internal/i18n"
	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/rotation"
	"github.com/raffaelramalhorosa/smart-display/internal/schedule"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

// MaxHeadlines bounds the headline list handed to the news slide.
const MaxHeadlines = 20

// Backend is the display backend as seen by the service.
type Backend interface {
	FetchBackground(ctx context.Context) (models.BackgroundSlot, error)
	FetchWeatherToday(ctx context.Context) (models.WeatherToday, error)
	FetchWeatherWeekly(ctx context.Context) (models.WeeklyForecast, error)
	FetchHeadlines(ctx context.Context) (models.NewsFeed, error)
	FetchDayInfo(ctx context.Context) (models.DayInfo, error)
	FetchDashboardConfig(ctx context.Context) (models.DashboardConfig, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Backend   Backend
	Preloader background.Preloader
	Session   store.Session
	// Feeds holds RSS headlines used when the backend has none. Optional.
	Feeds  *store.Store
	Clock  schedule.Clock
	Logger *slog.Logger
}

// Snapshot is everything the renderer needs for one frame.
type Snapshot struct {
	GeneratedAt      time.Time              `json:"generatedAt"`
	Background       background.Snapshot    `json:"background"`
	Weather          *models.WeatherToday   `json:"weather,omitempty"`
	WeatherDegraded  bool                   `json:"weatherDegraded"`
	Forecast         *models.WeeklyForecast `json:"forecast,omitempty"`
	ForecastDegraded bool                   `json:"forecastDegraded"`
	SideInfo         rotation.View          `json:"sideInfo"`
	Panels           rotation.View          `json:"panels"`
}

// Service is the process-wide display state. Create one with New and run it
// with Run.
type Service struct {
	backend Backend
	feeds   *store.Store
	clock   schedule.Clock
	printer *message.Printer
	logger  *slog.Logger

	engine   *background.Engine
	forecast *forecast.Cache
	weather  *store.Versioned[models.WeatherToday]
	dayInfo  *store.Versioned[models.DayInfo]
	news     *store.Versioned[models.NewsFeed]

	side   *rotation.Rotator
	panels *rotation.Rotator

	mu   sync.RWMutex
	base config.Config
	cfg  config.Config

	dayInfoAttempted atomic.Bool
	newsAttempted    atomic.Bool

	timers schedule.Group
}

// New wires the caches, the background engine and both rotators.
func New(cfg config.Config, deps Deps) (*Service, error) {
	if deps.Clock == nil {
		deps.Clock = schedule.Real{}
	}
	if deps.Session == nil {
		deps.Session = store.NewMemorySession()
	}
	if deps.Preloader == nil {
		deps.Preloader = background.NewHTTPPreloader()
	}
	logger := deps.Logger

	s := &Service{
		backend: deps.Backend,
		feeds:   deps.Feeds,
		clock:   deps.Clock,
		printer: i18n.Printer(i18n.Resolve(cfg.Language)),
		logger:  logger,
		base:    cfg,
		cfg:     cfg,
	}

	var err error
	if s.weather, err = store.NewVersioned[models.WeatherToday]("weather-today", 1, WeatherTTL, deps.Session, logger); err != nil {
		return nil, err
	}
	if s.dayInfo, err = store.NewVersioned[models.DayInfo]("day-info", 1, DayInfoTTL, deps.Session, logger); err != nil {
		return nil, err
	}
	if s.news, err = store.NewVersioned[models.NewsFeed]("headlines", 1, HeadlinesTTL, deps.Session, logger); err != nil {
		return nil, err
	}
	for _, slot := range []interface{ SetClock(func() time.Time) }{s.weather, s.dayInfo, s.news} {
		slot.SetClock(s.clock.Now)
	}

	s.forecast, err = forecast.New(deps.Backend, deps.Session, forecast.DefaultTTL, s.printer, logger,
		forecast.WithClock(s.clock.Now))
	if err != nil {
		return nil, err
	}

	s.engine = background.New(deps.Backend, deps.Preloader, s.clock, background.Config{
		Refresh:     cfg.BackgroundRefresh,
		FallbackURL: cfg.FallbackBackground,
	}, logger)

	layout := &rotation.Layout{
		ContainerWidth: cfg.ContainerWidth,
		Measurer:       rotation.EstimateMeasurer{FontSize: cfg.FontSize},
	}
	s.side = rotation.NewRotator(s.clock, s.buildSideSlides, rotation.Options{
		Name:         "side-info",
		Interval:     cfg.SideInfoInterval,
		MinInterval:  rotation.SideInfoMinInterval,
		NewsInterval: cfg.NewsInterval,
		Layout:       layout,
	}, logger)
	s.panels = rotation.NewRotator(s.clock, func(keys []string, _ int) []models.Slide {
		return rotation.StaticSlides(keys)
	}, rotation.Options{
		Name:        "panels",
		Interval:    cfg.PanelInterval,
		MinInterval: rotation.PanelMinInterval,
	}, logger)

	s.side.Configure(cfg.Sections, true)
	s.panels.Configure(cfg.Panels, true)
	return s, nil
}

// Run starts every loop and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.engine.Run(ctx)
	}()

	<-ctx.Done()
	s.stop()
	wg.Wait()
}

// start performs the first refresh of every source and schedules the
// polling loops.
func (s *Service) start(ctx context.Context) {
	s.logger.Info("display service started")

	s.refreshConfig(ctx)
	s.refreshWeather(ctx)
	s.refreshDayInfo(ctx)
	s.refreshHeadlines(ctx)
	s.forecast.Get(ctx)

	cfg := s.Config()
	s.poll(ctx, cfg.ConfigPoll, s.refreshConfig)
	s.poll(ctx, cfg.WeatherPoll, s.refreshWeather)
	s.poll(ctx, cfg.DayInfoPoll, s.refreshDayInfo)
	s.poll(ctx, cfg.HeadlinesPoll, s.refreshHeadlines)
	s.poll(ctx, cfg.WeatherPoll, func(ctx context.Context) { s.forecast.Get(ctx) })

	s.side.Start()
	s.panels.Start()
}

func (s *Service) stop() {
	s.timers.CancelAll()
	s.side.Stop()
	s.panels.Stop()
	s.logger.Info("display service stopped")
}

func (s *Service) poll(ctx context.Context, every time.Duration, f func(context.Context)) {
	if every <= 0 {
		return
	}
	s.timers.Add(s.clock.Every(every, func() {
		if ctx.Err() != nil {
			return
		}
		f(ctx)
	}))
}

// refreshWeather updates today's weather and forwards the storm signal to
// the background engine.
func (s *Service) refreshWeather(ctx context.Context) {
	rec := readThrough(ctx, s.weather, s.clock.Now(), s.backend.FetchWeatherToday, s.logger)
	if rec.Payload != nil {
		s.engine.SetStormProximity(rec.Payload.StormNearby)
	}
}

func (s *Service) refreshDayInfo(ctx context.Context) {
	if !s.Config().DayInfoEnabled {
		return
	}
	readThrough(ctx, s.dayInfo, s.clock.Now(), s.backend.FetchDayInfo, s.logger)
	s.dayInfoAttempted.Store(true)
}

func (s *Service) refreshHeadlines(ctx context.Context) {
	if !s.Config().NewsEnabled {
		return
	}
	readThrough(ctx, s.news, s.clock.Now(), s.backend.FetchHeadlines, s.logger)
	s.newsAttempted.Store(true)
}

// refreshConfig overlays the backend dashboard configuration on the local
// one. Failures keep the current settings.
func (s *Service) refreshConfig(ctx context.Context) {
	d, err := s.backend.FetchDashboardConfig(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("dashboard config unavailable, keeping local settings", "error", err)
		}
		return
	}

	s.mu.Lock()
	next := s.base.ApplyDashboard(d)
	s.cfg = next
	s.mu.Unlock()

	s.side.Configure(next.Sections, true)
	s.side.SetInterval(next.SideInfoInterval)
	s.panels.Configure(next.Panels, true)
	s.panels.SetInterval(next.PanelInterval)
	s.engine.SetRefresh(next.BackgroundRefresh)
}

// Config returns the effective configuration.
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// buildSideSlides is the side-info rotator builder. It runs under the
// rotator lock and must not call back into the rotator.
func (s *Service) buildSideSlides(sections []string, cursor int) []models.Slide {
	cfg := s.Config()
	headlines, loading := s.Headlines(MaxHeadlines)

	in := rotation.Inputs{
		DayInfoEnabled:   cfg.DayInfoEnabled,
		Headlines:        headlines,
		HeadlinesLoading: loading,
		NewsEnabled:      cfg.NewsEnabled,
		NewsCursor:       cursor,
		FoldSantoral:     cfg.FoldSantoral,
		Now:              s.clock.Now(),
	}
	if rec := s.dayInfo.Read(); rec.Payload != nil {
		in.DayInfo = rec.Payload
	} else {
		in.DayInfoLoading = !s.dayInfoAttempted.Load()
	}
	return rotation.BuildSlides(sections, in, s.printer)
}

// Headlines returns backend headlines, falling back to the RSS feeds when the
// backend has none. loading is true until the first backend attempt ends
// with nothing to show.
func (s *Service) Headlines(limit int) (items []models.NewsHeadline, loading bool) {
	if rec := s.news.Read(); rec.Payload != nil && len(rec.Payload.Items) > 0 {
		items = rec.Payload.Items
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return items, false
	}
	if s.feeds != nil {
		if items = s.feeds.ListHeadlines(limit); len(items) > 0 {
			return items, false
		}
	}
	return nil, !s.newsAttempted.Load()
}

// SetStorm forwards an external storm alert to the background engine.
func (s *Service) SetStorm(near bool) {
	s.engine.SetStormProximity(near)
}

// Background returns the background engine state.
func (s *Service) Background() background.Snapshot { return s.engine.Snapshot() }

// SideInfo returns the side-info rotator view.
func (s *Service) SideInfo() rotation.View { return s.side.View() }

// Panels returns the general panel rotator view.
func (s *Service) Panels() rotation.View { return s.panels.View() }

// Forecast returns the weekly forecast, refreshing it when expired.
func (s *Service) Forecast(ctx context.Context) store.Record[models.WeeklyForecast] {
	return s.forecast.Get(ctx)
}

// Snapshot returns the full display state without touching the network.
func (s *Service) Snapshot() Snapshot {
	snap := Snapshot{
		GeneratedAt: s.clock.Now(),
		Background:  s.engine.Snapshot(),
		SideInfo:    s.side.View(),
		Panels:      s.panels.View(),
	}
	if rec := s.weather.Read(); rec.Payload != nil {
		snap.Weather = rec.Payload
		snap.WeatherDegraded = rec.Degraded
	}
	if rec := s.forecast.Peek(); rec.Payload != nil {
		snap.Forecast = rec.Payload
		snap.ForecastDegraded = rec.Degraded
	}
	return snap
}
