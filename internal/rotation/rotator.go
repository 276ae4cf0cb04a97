package rotation

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/schedule"
)

// Interval bounds for the two rotators of the display.
const (
	SideInfoMinInterval = 5 * time.Second
	PanelMinInterval    = 4 * time.Second
	MaxInterval         = 30 * time.Second

	// DefaultNewsInterval advances headlines when news is the only slide.
	DefaultNewsInterval = 12 * time.Second
)

// ClampInterval bounds d to [lo, hi].
func ClampInterval(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// Builder derives the slide list for the given sections and headline cursor.
type Builder func(sections []string, newsCursor int) []models.Slide

// Layout enables marquee detection for slide text.
type Layout struct {
	ContainerWidth float64
	Measurer       Measurer
}

// Options configures a Rotator.
type Options struct {
	Name         string
	Interval     time.Duration
	MinInterval  time.Duration
	MaxInterval  time.Duration
	NewsInterval time.Duration
	Layout       *Layout
}

// View is the rotator state at a point in time.
type View struct {
	Name       string         `json:"name"`
	Enabled    bool           `json:"enabled"`
	Index      int            `json:"index"`
	NewsCursor int            `json:"newsCursor"`
	Interval   time.Duration  `json:"interval"`
	Active     *models.Slide  `json:"active,omitempty"`
	Slides     []models.Slide `json:"slides"`
}

// Rotator cycles through slides on a fixed interval.
type Rotator struct {
	clock  schedule.Clock
	build  Builder
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	sections   []string
	enabled    bool
	index      int
	activeKey  string
	newsCursor int
	timers     *schedule.Group
}

// NewRotator returns a stopped rotator. The interval is clamped to the
// configured bounds (side-info bounds by default).
func NewRotator(clock schedule.Clock, build Builder, opts Options, logger *slog.Logger) *Rotator {
	if opts.MinInterval <= 0 {
		opts.MinInterval = SideInfoMinInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = MaxInterval
	}
	opts.Interval = ClampInterval(opts.Interval, opts.MinInterval, opts.MaxInterval)
	if opts.NewsInterval <= 0 {
		opts.NewsInterval = DefaultNewsInterval
	}
	return &Rotator{
		clock:   clock,
		build:   build,
		opts:    opts,
		logger:  logger,
		enabled: true,
	}
}

// Interval returns the clamped tick interval.
func (r *Rotator) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Interval
}

// SetInterval changes the tick interval, clamped to the rotator bounds.
// A running rotator restarts its slide timer.
func (r *Rotator) SetInterval(d time.Duration) {
	r.mu.Lock()
	d = ClampInterval(d, r.opts.MinInterval, r.opts.MaxInterval)
	if d == r.opts.Interval {
		r.mu.Unlock()
		return
	}
	r.opts.Interval = d
	running := r.timers != nil
	r.mu.Unlock()

	if running {
		r.Stop()
		r.Start()
	}
	r.logger.Info("rotation interval changed", "rotator", r.opts.Name, "interval", d)
}

// Configure sets the section list. The index goes back to the first slide
// whenever the sections or the enabled flag change.
func (r *Rotator) Configure(sections []string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enabled == r.enabled && slices.Equal(sections, r.sections) {
		return
	}
	r.sections = slices.Clone(sections)
	r.enabled = enabled
	r.index = 0
	r.activeKey = ""
	if slides := r.build(r.sections, r.newsCursor); enabled && len(slides) > 0 {
		r.activeKey = slides[0].Key
	}
	r.logger.Info("rotation configured", "rotator", r.opts.Name, "sections", r.sections, "enabled", enabled)
}

// Start schedules the slide and solo-news timers.
func (r *Rotator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timers != nil {
		return
	}
	r.timers = &schedule.Group{}
	r.timers.Add(r.clock.Every(r.opts.Interval, r.Tick))
	r.timers.Add(r.clock.Every(r.opts.NewsInterval, r.tickSoloNews))
}

// Stop cancels the timers.
func (r *Rotator) Stop() {
	r.mu.Lock()
	timers := r.timers
	r.timers = nil
	r.mu.Unlock()
	if timers != nil {
		timers.CancelAll()
	}
}

// Tick advances to the next slide. An index left out of range by a shrinking
// slide list goes back to 0. Leaving the news slide moves the headline cursor
// forward so the next visit shows another headline.
func (r *Rotator) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return
	}
	slides := r.build(r.sections, r.newsCursor)
	n := len(slides)
	if n == 0 {
		r.index = 0
		r.activeKey = ""
		return
	}

	if r.index >= n {
		r.index = 0
	} else {
		r.index = (r.index + 1) % n
	}

	key := slides[r.index].Key
	if r.activeKey == SectionNews && key != SectionNews {
		r.newsCursor++
	}
	r.activeKey = key
}

// tickSoloNews rotates headlines when news is the only slide, since the
// slide timer never leaves it.
func (r *Rotator) tickSoloNews() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return
	}
	slides := r.build(r.sections, r.newsCursor)
	if len(slides) == 1 && slides[0].Key == SectionNews && !slides[0].Placeholder {
		r.newsCursor++
	}
}

// View returns the current slide list and active slide.
func (r *Rotator) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := View{
		Name:       r.opts.Name,
		Enabled:    r.enabled,
		NewsCursor: r.newsCursor,
		Interval:   r.opts.Interval,
	}
	if !r.enabled {
		return v
	}
	slides := r.build(r.sections, r.newsCursor)
	if lay := r.opts.Layout; lay != nil {
		for i := range slides {
			slides[i].Marquee = Marquee(slides[i].Primary, lay.ContainerWidth, lay.Measurer)
			slides[i].DetailMarquees = detailMarquees(slides[i].Details, lay)
		}
	}
	v.Slides = slides
	if len(slides) == 0 {
		return v
	}
	idx := r.index
	if idx >= len(slides) {
		idx = 0
	}
	v.Index = idx
	active := slides[idx]
	v.Active = &active
	return v
}
