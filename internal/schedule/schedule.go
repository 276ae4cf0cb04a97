// Package schedule provides cancellable timers. Every long-lived loop in the
// display (background prefetch, slide rotation, polling) holds the Handle it
// was given and cancels it on teardown.
package schedule

import (
	"sync"
	"time"
)

// Handle cancels a scheduled task. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// Clock schedules callbacks. Callbacks run on a goroutine owned by the clock
// and must do their own locking.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Handle
	// Every runs f every d until cancelled. The first run happens after d.
	Every(d time.Duration, f func()) Handle
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Handle {
	return timerHandle{time.AfterFunc(d, f)}
}

func (Real) Every(d time.Duration, f func()) Handle {
	h := &tickerHandle{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				f()
			}
		}
	}()
	return h
}

type timerHandle struct{ t *time.Timer }

func (h timerHandle) Cancel() { h.t.Stop() }

type tickerHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}

// Group collects handles so a component can cancel all of them at once.
type Group struct {
	mu      sync.Mutex
	handles []Handle
	closed  bool
}

// Add tracks h. Adding to a cancelled group cancels h immediately.
func (g *Group) Add(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		h.Cancel()
		return
	}
	g.handles = append(g.handles, h)
}

// CancelAll cancels every tracked handle.
func (g *Group) CancelAll() {
	g.mu.Lock()
	hs := g.handles
	g.handles = nil
	g.closed = true
	g.mu.Unlock()
	for _, h := range hs {
		h.Cancel()
	}
}
