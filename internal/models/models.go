package models

import "time"

// BackgroundSlot is one stage of the background image pipeline.
type BackgroundSlot struct {
	URL          string `json:"url"`
	GeneratedAt  int64  `json:"generatedAt"`
	IsFallback   bool   `json:"isFallback"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// Marquee describes how an overflowing slide line scrolls.
type Marquee struct {
	TextWidth float64       `json:"textWidth"`
	Duration  time.Duration `json:"duration"`
}

// Slide is one rotating content unit.
type Slide struct {
	Key         string   `json:"key"`
	Primary     string   `json:"primary"`
	Details     []string `json:"details,omitempty"`
	Placeholder bool     `json:"placeholder"`
	Marquee     *Marquee `json:"marquee,omitempty"`
	// DetailMarquees is parallel to Details; nil entries fit. It is omitted
	// when no detail line overflows.
	DetailMarquees []*Marquee `json:"detailMarquees,omitempty"`
}

// NewsHeadline is a single headline shown by the news slide.
type NewsHeadline struct {
	Title     string     `json:"title"`
	Source    string     `json:"source"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
}

// NewsFeed is the backend headline payload.
type NewsFeed struct {
	Items     []NewsHeadline `json:"items"`
	Note      string         `json:"note,omitempty"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

// WeatherToday is the normalized current-day weather.
type WeatherToday struct {
	Temp        float64 `json:"temp"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	RainProb    float64 `json:"rainProb"`
	Condition   string  `json:"condition"`
	Icon        string  `json:"icon"`
	StormNearby bool    `json:"stormNearby"`
}

// ForecastDay is one day of the weekly forecast.
type ForecastDay struct {
	Date      string  `json:"date,omitempty"`
	DayName   string  `json:"dayName"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	RainProb  float64 `json:"rainProb"`
	Condition string  `json:"condition"`
	Icon      string  `json:"icon"`
}

// WeeklyForecast holds up to seven forecast days.
type WeeklyForecast struct {
	Days      []ForecastDay `json:"days"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

// Efemeride is a historical event that happened on today's date.
type Efemeride struct {
	Year int    `json:"year,omitempty"`
	Text string `json:"text"`
}

// DayInfo groups the calendar facts for a single date.
type DayInfo struct {
	Date       string      `json:"date"`
	Santoral   []string    `json:"santoral,omitempty"`
	Holidays   []string    `json:"holidays,omitempty"`
	Efemerides []Efemeride `json:"efemerides,omitempty"`
}

// DashboardConfig is the subset of the backend configuration the display uses.
type DashboardConfig struct {
	Sections              []string `json:"sections"`
	Panels                []string `json:"panels"`
	NewsEnabled           *bool    `json:"newsEnabled,omitempty"`
	FoldSantoral          *bool    `json:"foldSantoral,omitempty"`
	SideInfoIntervalMs    int      `json:"sideInfoIntervalMs,omitempty"`
	PanelIntervalMs       int      `json:"panelIntervalMs,omitempty"`
	BackgroundRefreshMins int      `json:"backgroundRefreshMinutes,omitempty"`
}

// Feed represents an RSS/Atom source polled when the backend has no headlines.
type Feed struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	LastFetched time.Time `json:"last_fetched"`
}

// AddFeedRequest is the payload for registering a new feed.
type AddFeedRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FetchResult carries the outcome of a single feed fetch through a channel.
type FetchResult struct {
	FeedID    string
	Headlines []NewsHeadline
	Err       error
}
