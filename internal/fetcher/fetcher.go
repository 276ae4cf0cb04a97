// Package fetcher polls the registered RSS/Atom feeds that back the news
// slide when the display backend has no headlines of its own.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

// DefaultInterval is how often feeds are polled.
const DefaultInterval = 15 * time.Minute

// feedTimeout bounds a single feed download.
const feedTimeout = 15 * time.Second

// Fetcher periodically pulls every registered feed using concurrent workers
// and pushes parsed headlines into the store.
type Fetcher struct {
	store    *store.Store
	parser   *gofeed.Parser
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// New returns a Fetcher that polls feeds every interval.
func New(s *store.Store, interval time.Duration, logger *slog.Logger) *Fetcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Fetcher{
		store:    s,
		parser:   gofeed.NewParser(),
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins the background polling loop. It blocks until ctx is cancelled.
func (f *Fetcher) Start(ctx context.Context) {
	f.logger.Info("fetcher started", "interval", f.interval)

	// Run immediately on startup, then on every tick.
	f.FetchAll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("fetcher stopped")
			return
		case <-ticker.C:
			f.FetchAll(ctx)
		}
	}
}

// FetchAll fans out one goroutine per feed, collects results through a
// channel and persists them. It returns the number of new headlines.
func (f *Fetcher) FetchAll(ctx context.Context) int {
	feeds := f.store.ListFeeds()
	if len(feeds) == 0 {
		return 0
	}

	f.logger.Info("fetch cycle starting", "feeds", len(feeds))

	results := make(chan models.FetchResult, len(feeds))

	var wg sync.WaitGroup
	for _, feed := range feeds {
		wg.Add(1)
		go func(feed models.Feed) {
			defer wg.Done()
			headlines, err := f.fetchFeed(ctx, feed)
			results <- models.FetchResult{
				FeedID:    feed.ID,
				Headlines: headlines,
				Err:       err,
			}
		}(feed)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var totalSaved int
	for res := range results {
		if res.Err != nil {
			f.logger.Error("feed fetch failed", "feed_id", res.FeedID, "error", res.Err)
			continue
		}
		saved := f.store.SaveHeadlines(res.FeedID, res.Headlines)
		f.store.UpdateLastFetched(res.FeedID, f.now())
		totalSaved += saved
		f.logger.Info("feed fetched",
			"feed_id", res.FeedID,
			"headlines", len(res.Headlines),
			"new", saved,
		)
	}

	f.logger.Info("fetch cycle complete", "new_headlines", totalSaved)
	return totalSaved
}

// fetchFeed downloads and parses a single feed.
func (f *Fetcher) fetchFeed(ctx context.Context, feed models.Feed) ([]models.NewsHeadline, error) {
	parsedCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(feed.URL, parsedCtx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed.URL, err)
	}

	source := feed.Name
	if source == "" {
		source = strings.TrimSpace(parsed.Title)
	}

	headlines := make([]models.NewsHeadline, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		h := models.NewsHeadline{Title: title, Source: source, Link: item.Link}
		switch {
		case item.PublishedParsed != nil:
			pub := *item.PublishedParsed
			h.Published = &pub
		case item.UpdatedParsed != nil:
			upd := *item.UpdatedParsed
			h.Published = &upd
		}
		headlines = append(headlines, h)
	}
	return headlines, nil
}
