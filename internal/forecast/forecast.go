// Package forecast caches the 7-day forecast. When the weekly endpoint
// fails it degrades to a one-day forecast built from today's weather.
package forecast

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/message"

	"github.com/raffaelramalhorosa/smart-display/internal/i18n"
	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

// Defaults for the weekly cache.
var DefaultTTL = store.TTL{Full: 30 * time.Minute, Fallback: 5 * time.Minute}

// DefaultRetryDelay is how long a total failure is cached before retrying.
const DefaultRetryDelay = 2 * time.Minute

// Source provides the two weather endpoints the cache depends on.
type Source interface {
	FetchWeatherWeekly(ctx context.Context) (models.WeeklyForecast, error)
	FetchWeatherToday(ctx context.Context) (models.WeatherToday, error)
}

// Cache is the process-wide weekly forecast cache.
type Cache struct {
	src        Source
	slot       *store.Versioned[models.WeeklyForecast]
	now        func() time.Time
	retryDelay time.Duration
	printer    *message.Printer
	logger     *slog.Logger

	group singleflight.Group
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock replaces the time source of the cache and its slot.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRetryDelay sets how long a failed refresh is cached.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Cache) { c.retryDelay = d }
}

// New builds the cache on top of a session-backed slot.
func New(src Source, session store.Session, ttl store.TTL, printer *message.Printer, logger *slog.Logger, opts ...Option) (*Cache, error) {
	slot, err := store.NewVersioned[models.WeeklyForecast]("weather-weekly", 2, ttl, session, logger)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		src:        src,
		slot:       slot,
		now:        time.Now,
		retryDelay: DefaultRetryDelay,
		printer:    printer,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	slot.SetClock(c.now)
	return c, nil
}

// Peek returns the cached record without refreshing.
func (c *Cache) Peek() store.Record[models.WeeklyForecast] {
	return c.slot.Read()
}

// Get returns the cached forecast, refreshing it first when expired.
// Concurrent callers share one refresh.
func (c *Cache) Get(ctx context.Context) store.Record[models.WeeklyForecast] {
	rec := c.slot.Read()
	if !c.slot.IsExpired(rec, c.now()) {
		return rec
	}

	// The shared refresh must not be aborted by one caller going away.
	shared := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do("weekly", func() (any, error) {
		return c.refresh(shared), nil
	})
	return v.(store.Record[models.WeeklyForecast])
}

func (c *Cache) refresh(ctx context.Context) store.Record[models.WeeklyForecast] {
	weekly, err := c.src.FetchWeatherWeekly(ctx)
	if err == nil {
		c.logger.Info("weekly forecast refreshed", "days", len(weekly.Days))
		return c.slot.Write(&weekly, false)
	}
	c.logger.Warn("weekly forecast failed, falling back to today", "error", err)

	today, terr := c.src.FetchWeatherToday(ctx)
	if terr == nil {
		fallback := models.WeeklyForecast{Days: []models.ForecastDay{{
			DayName:   c.printer.Sprintf(i18n.ForecastToday),
			Min:       today.Min,
			Max:       today.Max,
			RainProb:  today.RainProb,
			Condition: today.Condition,
			Icon:      today.Icon,
		}}}
		return c.slot.Write(&fallback, true)
	}
	c.logger.Error("forecast fallback failed", "error", terr)

	// Stamp the empty record so it expires retryDelay from now.
	ttl := c.slot.TTL().For(true)
	stamp := c.now().Add(c.retryDelay - ttl)
	return c.slot.WriteAt(nil, true, stamp)
}
