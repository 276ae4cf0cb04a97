package remote

import (
	"context"
	"errors"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
)

// Backend paths.
const (
	PathBackground   = "/api/backgrounds/current"
	PathWeatherToday = "/weather/today"
	PathWeatherWeek  = "/weather/weekly"
	PathHeadlines    = "/news/headlines"
	PathDayInfo      = "/api/efemerides"
	PathConfig       = "/api/config"
)

// ErrEmptyBackground means the backend answered but has no image yet.
var ErrEmptyBackground = errors.New("remote: backend returned no background")

type backgroundWire struct {
	URL            string `json:"url"`
	GeneratedAt    int64  `json:"generatedAt"`
	GeneratedAtAlt int64  `json:"generated_at"`
}

// FetchBackground revalidates the current background descriptor. It returns
// ErrNotModified when the backend still serves the image last passed to
// AcceptBackground.
func (c *Client) FetchBackground(ctx context.Context) (models.BackgroundSlot, error) {
	var wire backgroundWire
	v, err := c.background.Fetch(ctx, &wire)
	if err != nil {
		return models.BackgroundSlot{}, err
	}
	if wire.URL == "" {
		return models.BackgroundSlot{}, ErrEmptyBackground
	}
	generated := wire.GeneratedAt
	if generated == 0 {
		generated = wire.GeneratedAtAlt
	}
	return models.BackgroundSlot{
		URL:          c.Resolve(wire.URL),
		GeneratedAt:  generated,
		ETag:         v.ETag,
		LastModified: v.LastModified,
	}, nil
}

// AcceptBackground marks slot as taken, so later fetches revalidate against
// its ETag. A slot that was fetched but never accepted is sent again.
func (c *Client) AcceptBackground(slot models.BackgroundSlot) {
	c.background.Commit(slot.ETag)
}

type weatherTodayWire struct {
	Temp        float64 `json:"temp"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	RainProb    float64 `json:"rain_prob"`
	Condition   string  `json:"condition"`
	Icon        string  `json:"icon"`
	StormNearby bool    `json:"storm_nearby"`
}

// FetchWeatherToday returns today's normalized weather.
func (c *Client) FetchWeatherToday(ctx context.Context) (models.WeatherToday, error) {
	var wire weatherTodayWire
	if err := c.GetJSON(ctx, PathWeatherToday, &wire); err != nil {
		return models.WeatherToday{}, err
	}
	return models.WeatherToday{
		Temp:        wire.Temp,
		Min:         wire.Min,
		Max:         wire.Max,
		RainProb:    wire.RainProb,
		Condition:   wire.Condition,
		Icon:        wire.Icon,
		StormNearby: wire.StormNearby,
	}, nil
}

type weeklyWire struct {
	Days []struct {
		Date      string  `json:"date"`
		DayName   string  `json:"day_name"`
		Min       float64 `json:"min"`
		Max       float64 `json:"max"`
		RainProb  float64 `json:"rain_prob"`
		Condition string  `json:"condition"`
		Icon      string  `json:"icon"`
	} `json:"days"`
	UpdatedAt string `json:"updated_at"`
}

// FetchWeatherWeekly returns the 7-day forecast. An empty day list is an
// error so the caller falls back to today's weather.
func (c *Client) FetchWeatherWeekly(ctx context.Context) (models.WeeklyForecast, error) {
	var wire weeklyWire
	if err := c.GetJSON(ctx, PathWeatherWeek, &wire); err != nil {
		return models.WeeklyForecast{}, err
	}
	if len(wire.Days) == 0 {
		return models.WeeklyForecast{}, errors.New("weekly forecast has no days")
	}
	out := models.WeeklyForecast{
		Days:      make([]models.ForecastDay, 0, len(wire.Days)),
		UpdatedAt: wire.UpdatedAt,
	}
	for _, d := range wire.Days {
		out.Days = append(out.Days, models.ForecastDay{
			Date:      d.Date,
			DayName:   d.DayName,
			Min:       d.Min,
			Max:       d.Max,
			RainProb:  d.RainProb,
			Condition: d.Condition,
			Icon:      d.Icon,
		})
	}
	return out, nil
}

type headlinesWire struct {
	Items []struct {
		Title     string `json:"title"`
		Source    string `json:"source"`
		Link      string `json:"link"`
		Published string `json:"published"`
	} `json:"items"`
	Note      string `json:"note"`
	UpdatedAt string `json:"updated_at"`
}

// FetchHeadlines returns the backend headline list.
func (c *Client) FetchHeadlines(ctx context.Context) (models.NewsFeed, error) {
	var wire headlinesWire
	if err := c.GetJSON(ctx, PathHeadlines, &wire); err != nil {
		return models.NewsFeed{}, err
	}
	feed := models.NewsFeed{
		Items:     make([]models.NewsHeadline, 0, len(wire.Items)),
		Note:      wire.Note,
		UpdatedAt: wire.UpdatedAt,
	}
	for _, it := range wire.Items {
		if it.Title == "" {
			continue
		}
		h := models.NewsHeadline{Title: it.Title, Source: it.Source, Link: it.Link}
		if ts, err := time.Parse(time.RFC3339, it.Published); err == nil {
			h.Published = &ts
		}
		feed.Items = append(feed.Items, h)
	}
	return feed, nil
}

type dayInfoWire struct {
	Date       string   `json:"date"`
	Santoral   []string `json:"santoral"`
	Holidays   []string `json:"holidays"`
	Efemerides []struct {
		Year int    `json:"year"`
		Text string `json:"text"`
	} `json:"efemerides"`
}

// FetchDayInfo returns today's santoral, holidays and efemerides.
func (c *Client) FetchDayInfo(ctx context.Context) (models.DayInfo, error) {
	var wire dayInfoWire
	if err := c.GetJSON(ctx, c.dayInfoPath, &wire); err != nil {
		return models.DayInfo{}, err
	}
	info := models.DayInfo{
		Date:     wire.Date,
		Santoral: wire.Santoral,
		Holidays: wire.Holidays,
	}
	for _, e := range wire.Efemerides {
		if e.Text == "" {
			continue
		}
		info.Efemerides = append(info.Efemerides, models.Efemeride{Year: e.Year, Text: e.Text})
	}
	return info, nil
}

type configWire struct {
	Rotation struct {
		Sections        []string `json:"sections"`
		Panels          []string `json:"panels"`
		NewsEnabled     *bool    `json:"news_enabled"`
		FoldSantoral    *bool    `json:"fold_santoral"`
		SideIntervalMs  int      `json:"side_interval_ms"`
		PanelIntervalMs int      `json:"panel_interval_ms"`
	} `json:"rotation"`
	Background struct {
		RefreshMinutes int `json:"refresh_minutes"`
	} `json:"background"`
}

// FetchDashboardConfig reads the display-related part of the backend config.
func (c *Client) FetchDashboardConfig(ctx context.Context) (models.DashboardConfig, error) {
	var wire configWire
	if err := c.GetJSON(ctx, PathConfig, &wire); err != nil {
		return models.DashboardConfig{}, err
	}
	return models.DashboardConfig{
		Sections:              wire.Rotation.Sections,
		Panels:                wire.Rotation.Panels,
		NewsEnabled:           wire.Rotation.NewsEnabled,
		FoldSantoral:          wire.Rotation.FoldSantoral,
		SideInfoIntervalMs:    wire.Rotation.SideIntervalMs,
		PanelIntervalMs:       wire.Rotation.PanelIntervalMs,
		BackgroundRefreshMins: wire.Background.RefreshMinutes,
	}, nil
}
