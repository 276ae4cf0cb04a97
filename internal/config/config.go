// Package config loads the display daemon settings from the environment and
// an optional YAML layout file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/raffaelramalhorosa/smart-display/internal/background"
	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/rotation"
)

// MinBackgroundRefresh is the shortest accepted background refresh interval.
const MinBackgroundRefresh = time.Minute

// DefaultSections is the side-info rotation order when nothing is configured.
var DefaultSections = []string{
	rotation.SectionEfemerides,
	rotation.SectionSantoral,
	rotation.SectionHolidays,
	rotation.SectionNews,
}

// DefaultPanels is the general panel rotation order.
var DefaultPanels = []string{"weather", "forecast", "globe"}

// Config holds every setting the daemon reads at startup.
type Config struct {
	Port       string `env:"PORT"                envDefault:"8080"`
	BackendURL string `env:"DISPLAY_BACKEND_URL" envDefault:"http://localhost:8081"`
	Language   string `env:"DISPLAY_LANGUAGE"    envDefault:"es"`
	LogLevel   string `env:"DISPLAY_LOG_LEVEL"   envDefault:"info"`

	SessionDir  string `env:"DISPLAY_SESSION_DIR"`
	LayoutFile  string `env:"DISPLAY_LAYOUT"`
	DayInfoPath string `env:"DISPLAY_DAYINFO_PATH"`

	FallbackBackground string        `env:"DISPLAY_FALLBACK_BACKGROUND" envDefault:"/static/fallback.jpg"`
	BackgroundRefresh  time.Duration `env:"DISPLAY_BACKGROUND_REFRESH"  envDefault:"60m"`

	SideInfoInterval time.Duration `env:"DISPLAY_SIDE_INTERVAL"  envDefault:"12s"`
	PanelInterval    time.Duration `env:"DISPLAY_PANEL_INTERVAL" envDefault:"15s"`
	NewsInterval     time.Duration `env:"DISPLAY_NEWS_INTERVAL"  envDefault:"12s"`

	WeatherPoll   time.Duration `env:"DISPLAY_WEATHER_POLL"   envDefault:"5m"`
	DayInfoPoll   time.Duration `env:"DISPLAY_DAYINFO_POLL"   envDefault:"30m"`
	HeadlinesPoll time.Duration `env:"DISPLAY_HEADLINES_POLL" envDefault:"10m"`
	ConfigPoll    time.Duration `env:"DISPLAY_CONFIG_POLL"    envDefault:"5m"`
	FeedPoll      time.Duration `env:"DISPLAY_FEED_POLL"      envDefault:"15m"`

	NewsEnabled    bool `env:"DISPLAY_NEWS_ENABLED"    envDefault:"true"`
	DayInfoEnabled bool `env:"DISPLAY_DAYINFO_ENABLED" envDefault:"true"`
	FoldSantoral   bool `env:"DISPLAY_FOLD_SANTORAL"   envDefault:"false"`

	ContainerWidth float64 `env:"DISPLAY_CONTAINER_WIDTH" envDefault:"640"`
	FontSize       float64 `env:"DISPLAY_FONT_SIZE"       envDefault:"28"`

	OTelEndpoint string `env:"DISPLAY_OTEL_ENDPOINT"`

	Sections []string `env:"DISPLAY_SECTIONS" envSeparator:","`
	Panels   []string `env:"DISPLAY_PANELS"   envSeparator:","`

	feeds []Feed
}

// Feeds returns the RSS sources declared in the layout file.
func (c Config) Feeds() []Feed { return c.feeds }

// Feed is an RSS source from the layout file.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Layout is the YAML layout file.
type Layout struct {
	Sections     []string `yaml:"sections"`
	Panels       []string `yaml:"panels"`
	FoldSantoral *bool    `yaml:"foldSantoral"`
	Feeds        []Feed   `yaml:"feeds"`
}

// Load parses the environment, merges the layout file if one is set and
// normalizes the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LayoutFile != "" {
		layout, err := LoadLayout(cfg.LayoutFile)
		if err != nil {
			return Config{}, err
		}
		cfg.applyLayout(layout)
	}
	cfg.Normalize()
	return cfg, nil
}

// LoadLayout reads and validates a layout file.
func LoadLayout(path string) (Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	var layout Layout
	if err := yaml.Unmarshal(b, &layout); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	for i, f := range layout.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return Layout{}, fmt.Errorf("feeds[%d].url is required", i)
		}
	}
	return layout, nil
}

func (c *Config) applyLayout(l Layout) {
	if len(l.Sections) > 0 && len(c.Sections) == 0 {
		c.Sections = l.Sections
	}
	if len(l.Panels) > 0 && len(c.Panels) == 0 {
		c.Panels = l.Panels
	}
	if l.FoldSantoral != nil {
		c.FoldSantoral = *l.FoldSantoral
	}
	c.feeds = append(c.feeds, l.Feeds...)
}

// Normalize fills defaults and clamps intervals to their accepted ranges.
func (c *Config) Normalize() {
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	c.Sections = cleanKeys(c.Sections)
	if len(c.Sections) == 0 {
		c.Sections = append([]string(nil), DefaultSections...)
	}
	c.Panels = cleanKeys(c.Panels)
	if len(c.Panels) == 0 {
		c.Panels = append([]string(nil), DefaultPanels...)
	}

	c.SideInfoInterval = rotation.ClampInterval(c.SideInfoInterval, rotation.SideInfoMinInterval, rotation.MaxInterval)
	c.PanelInterval = rotation.ClampInterval(c.PanelInterval, rotation.PanelMinInterval, rotation.MaxInterval)
	if c.NewsInterval <= 0 {
		c.NewsInterval = rotation.DefaultNewsInterval
	}
	c.BackgroundRefresh = ClampRefresh(c.BackgroundRefresh)
}

// ApplyDashboard overlays the backend dashboard configuration. Zero values
// in d leave the local setting untouched.
func (c Config) ApplyDashboard(d models.DashboardConfig) Config {
	if s := cleanKeys(d.Sections); len(s) > 0 {
		c.Sections = s
	}
	if p := cleanKeys(d.Panels); len(p) > 0 {
		c.Panels = p
	}
	if d.NewsEnabled != nil {
		c.NewsEnabled = *d.NewsEnabled
	}
	if d.FoldSantoral != nil {
		c.FoldSantoral = *d.FoldSantoral
	}
	if d.SideInfoIntervalMs > 0 {
		c.SideInfoInterval = time.Duration(d.SideInfoIntervalMs) * time.Millisecond
	}
	if d.PanelIntervalMs > 0 {
		c.PanelInterval = time.Duration(d.PanelIntervalMs) * time.Millisecond
	}
	if d.BackgroundRefreshMins > 0 {
		c.BackgroundRefresh = time.Duration(d.BackgroundRefreshMins) * time.Minute
	}
	c.Normalize()
	return c
}

// ClampRefresh applies the background refresh default and floor.
func ClampRefresh(d time.Duration) time.Duration {
	if d <= 0 {
		return background.DefaultRefresh
	}
	if d < MinBackgroundRefresh {
		return MinBackgroundRefresh
	}
	return d
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
