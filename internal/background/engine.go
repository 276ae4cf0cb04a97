// Package background runs the background image pipeline of the display:
// a previous/current/next slot triple, prefetch with preload, a scheduled
// commit and a fixed-length crossfade.
package background

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/remote"
	"github.com/raffaelramalhorosa/smart-display/internal/schedule"
)

// CrossfadeDuration is how long previous stays alive after a commit.
const CrossfadeDuration = 1200 * time.Millisecond

// DefaultRefresh is the interval between background swaps.
const DefaultRefresh = 60 * time.Minute

// State is the engine lifecycle phase.
type State string

const (
	StateInitializing State = "initializing"
	StateSteady       State = "steady"
	StatePrefetching  State = "prefetching"
	StateCrossfading  State = "crossfading"
)

// Source returns the backend's current background. It returns
// remote.ErrNotModified when nothing changed since the previous call.
type Source interface {
	FetchBackground(ctx context.Context) (models.BackgroundSlot, error)
}

// Acceptor is implemented by sources that revalidate against the last
// accepted slot. AcceptBackground is called only after the slot preloaded.
type Acceptor interface {
	AcceptBackground(slot models.BackgroundSlot)
}

// Preloader confirms an image can be downloaded and decoded.
type Preloader interface {
	Preload(ctx context.Context, url string) error
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	State       State                  `json:"state"`
	Current     models.BackgroundSlot  `json:"current"`
	Previous    *models.BackgroundSlot `json:"previous,omitempty"`
	Next        *models.BackgroundSlot `json:"next,omitempty"`
	Crossfading bool                   `json:"crossfading"`
	Cycle       uint64                 `json:"cycle"`
	StormNearby bool                   `json:"stormNearby"`
}

// Engine owns the background slots. All state changes happen under mu, so a
// commit is applied atomically with respect to every other commit.
type Engine struct {
	src     Source
	preload Preloader
	clock   schedule.Clock
	refresh time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	current     models.BackgroundSlot
	previous    *models.BackgroundSlot
	next        *models.BackgroundSlot
	crossfading bool
	cycle       uint64
	lastCommit  time.Time
	storm       bool
	prefetching bool
	closed      bool

	runCtx     context.Context
	ticker     schedule.Handle
	commitTask schedule.Handle
	fadeTask   schedule.Handle
}

// Config holds the engine settings.
type Config struct {
	Refresh     time.Duration
	FallbackURL string
}

// New returns an engine showing the fallback asset until the first fetch lands.
func New(src Source, preload Preloader, clock schedule.Clock, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}
	return &Engine{
		src:     src,
		preload: preload,
		clock:   clock,
		refresh: cfg.Refresh,
		logger:  logger,
		state:   StateInitializing,
		current: models.BackgroundSlot{URL: cfg.FallbackURL, IsFallback: true},
	}
}

// Run bootstraps the engine, schedules periodic prefetches and blocks until
// ctx is cancelled. Results arriving after cancellation are discarded.
func (e *Engine) Run(ctx context.Context) {
	e.mount(ctx)
	<-ctx.Done()
	e.teardown()
}

func (e *Engine) mount(ctx context.Context) {
	e.mu.Lock()
	e.runCtx = ctx
	refresh := e.refresh
	e.mu.Unlock()

	e.logger.Info("background engine started", "refresh", refresh)
	e.bootstrap(ctx)

	e.mu.Lock()
	if !e.closed {
		e.armTickerLocked()
	}
	e.mu.Unlock()
	e.prefetch(ctx)
}

func (e *Engine) armTickerLocked() {
	if e.ticker != nil {
		e.ticker.Cancel()
	}
	ctx := e.runCtx
	e.ticker = e.clock.Every(e.refresh, func() { e.prefetch(ctx) })
}

func (e *Engine) teardown() {
	e.mu.Lock()
	e.closed = true
	for _, h := range []schedule.Handle{e.ticker, e.commitTask, e.fadeTask} {
		if h != nil {
			h.Cancel()
		}
	}
	e.mu.Unlock()
	e.logger.Info("background engine stopped")
}

// SetRefresh changes the refresh interval. A running engine restarts its
// prefetch ticker and recomputes a pending commit deadline.
func (e *Engine) SetRefresh(d time.Duration) {
	if d <= 0 {
		d = DefaultRefresh
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if d == e.refresh || e.closed {
		return
	}
	e.refresh = d
	e.logger.Info("background refresh changed", "refresh", d)
	if e.ticker == nil {
		return
	}
	e.armTickerLocked()
	if e.next != nil {
		e.scheduleCommitLocked()
	}
}

// bootstrap establishes current. The image is preloaded before it is
// published so the display never shows a half-loaded background.
func (e *Engine) bootstrap(ctx context.Context) {
	slot, err := e.fetchDecoded(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.state = StateSteady
	e.lastCommit = e.clock.Now()
	if err != nil {
		e.logger.Warn("background bootstrap failed, keeping fallback", "error", err)
		return
	}
	e.current = slot
	e.logger.Info("background ready", "url", slot.URL)
}

// prefetch fills next. Failures are logged and retried on the next tick; a
// prefetch that is still running causes the tick to be skipped.
func (e *Engine) prefetch(ctx context.Context) {
	e.mu.Lock()
	if e.closed || e.prefetching {
		e.mu.Unlock()
		return
	}
	e.prefetching = true
	if !e.crossfading {
		e.state = StatePrefetching
	}
	e.mu.Unlock()

	slot, err := e.fetchDecoded(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prefetching = false
	if e.closed {
		return
	}
	if e.state == StatePrefetching {
		e.state = StateSteady
	}

	switch {
	case errors.Is(err, remote.ErrNotModified):
		e.logger.Debug("background unchanged")
		return
	case err != nil:
		e.logger.Warn("background prefetch failed", "error", err)
		return
	case slot.URL == e.current.URL && slot.GeneratedAt == e.current.GeneratedAt:
		return
	}

	e.next = &slot
	e.logger.Info("background prefetched", "url", slot.URL)
	e.scheduleCommitLocked()
}

func (e *Engine) fetchDecoded(ctx context.Context) (models.BackgroundSlot, error) {
	slot, err := e.src.FetchBackground(ctx)
	if err != nil {
		return models.BackgroundSlot{}, err
	}
	if err := e.preload.Preload(ctx, slot.URL); err != nil {
		return models.BackgroundSlot{}, err
	}
	if a, ok := e.src.(Acceptor); ok {
		a.AcceptBackground(slot)
	}
	return slot, nil
}

// scheduleCommitLocked commits now when the refresh interval already elapsed
// since the last commit or when only the fallback is on screen, otherwise at
// the remaining deadline.
func (e *Engine) scheduleCommitLocked() {
	if e.commitTask != nil {
		e.commitTask.Cancel()
		e.commitTask = nil
	}
	remaining := e.refresh - e.clock.Now().Sub(e.lastCommit)
	if remaining <= 0 || e.current.IsFallback {
		e.commitLocked("scheduled")
		return
	}
	e.commitTask = e.clock.AfterFunc(remaining, e.commit)
}

func (e *Engine) commit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commitLocked("scheduled")
}

func (e *Engine) commitLocked(reason string) {
	if e.closed || e.next == nil {
		return
	}
	if e.commitTask != nil {
		e.commitTask.Cancel()
		e.commitTask = nil
	}

	prev := e.current
	e.previous = &prev
	e.current = *e.next
	e.next = nil
	e.crossfading = true
	e.state = StateCrossfading
	e.cycle++
	e.lastCommit = e.clock.Now()

	if e.fadeTask != nil {
		e.fadeTask.Cancel()
	}
	cycle := e.cycle
	e.fadeTask = e.clock.AfterFunc(CrossfadeDuration, func() { e.finishCrossfade(cycle) })

	e.logger.Info("background committed", "cycle", e.cycle, "reason", reason, "url", e.current.URL)
}

// finishCrossfade drops previous once the fade window of commit cycle is
// over. It does not wait for the renderer to report the animation as done,
// and it is a no-op once a later commit has started its own fade.
func (e *Engine) finishCrossfade(cycle uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || cycle != e.cycle {
		return
	}
	e.previous = nil
	e.crossfading = false
	e.fadeTask = nil
	if e.state == StateCrossfading {
		e.state = StateSteady
	}
}

// SetStormProximity feeds the storm alert signal. On a false to true
// transition a prepared next slot is committed immediately; without one
// nothing happens.
func (e *Engine) SetStormProximity(near bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rising := near && !e.storm
	e.storm = near
	if !rising {
		return
	}
	if e.next == nil {
		e.logger.Info("storm alert with no prepared background")
		return
	}
	e.commitLocked("storm")
}

// Snapshot returns a copy of the current slots.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		State:       e.state,
		Current:     e.current,
		Crossfading: e.crossfading,
		Cycle:       e.cycle,
		StormNearby: e.storm,
	}
	if e.previous != nil {
		p := *e.previous
		s.Previous = &p
	}
	if e.next != nil {
		n := *e.next
		s.Next = &n
	}
	return s
}
