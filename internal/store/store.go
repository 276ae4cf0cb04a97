package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
)

// DefaultPerFeed bounds how many headlines are retained for each feed.
const DefaultPerFeed = 30

// Store keeps RSS feed sources and the headlines pulled from them.
// All public methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	perFeed   int
	feeds     map[string]models.Feed
	headlines map[string]map[string]models.NewsHeadline // feed ID -> headline ID -> headline
}

// New creates an empty Store retaining perFeed headlines per feed.
func New(perFeed int) *Store {
	if perFeed <= 0 {
		perFeed = DefaultPerFeed
	}
	return &Store{
		perFeed:   perFeed,
		feeds:     make(map[string]models.Feed),
		headlines: make(map[string]map[string]models.NewsHeadline),
	}
}

// ---------- Feeds ----------

// AddFeed registers a feed. The ID is derived from the URL, so adding the
// same URL twice returns the existing feed.
func (s *Store) AddFeed(name, url string) models.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "feed_" + shortHash(url)
	if f, ok := s.feeds[id]; ok {
		return f
	}
	feed := models.Feed{ID: id, Name: name, URL: url}
	s.feeds[id] = feed
	return feed
}

// RemoveFeed deletes a feed and all of its headlines.
func (s *Store) RemoveFeed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feeds[id]; !ok {
		return false
	}
	delete(s.feeds, id)
	delete(s.headlines, id)
	return true
}

// ListFeeds returns every registered feed ordered by name.
func (s *Store) ListFeeds() []models.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds := make([]models.Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		feeds = append(feeds, f)
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Name < feeds[j].Name })
	return feeds
}

// UpdateLastFetched records when a feed was last successfully fetched.
func (s *Store) UpdateLastFetched(feedID string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.feeds[feedID]; ok {
		f.LastFetched = t
		s.feeds[feedID] = f
	}
}

// ---------- Headlines ----------

// SaveHeadlines merges a batch for feedID, skipping duplicates by link, and
// trims the feed to its newest headlines. Returns the number of new items.
// Batches for unknown feeds are dropped.
func (s *Store) SaveHeadlines(feedID string, items []models.NewsHeadline) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feeds[feedID]; !ok {
		return 0
	}
	bucket := s.headlines[feedID]
	if bucket == nil {
		bucket = make(map[string]models.NewsHeadline)
		s.headlines[feedID] = bucket
	}

	saved := 0
	for _, h := range items {
		id := shortHash(feedID + "|" + h.Link + "|" + h.Title)
		if _, exists := bucket[id]; !exists {
			bucket[id] = h
			saved++
		}
	}

	if len(bucket) > s.perFeed {
		ordered := sortedHeadlines(bucket)
		for _, h := range ordered[s.perFeed:] {
			delete(bucket, shortHash(feedID+"|"+h.Link+"|"+h.Title))
		}
	}
	return saved
}

// ListHeadlines returns headlines across all feeds sorted newest first.
// limit <= 0 means no limit.
func (s *Store) ListHeadlines(limit int) []models.NewsHeadline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]models.NewsHeadline)
	for feedID, bucket := range s.headlines {
		for id, h := range bucket {
			all[feedID+id] = h
		}
	}
	result := sortedHeadlines(all)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func sortedHeadlines(m map[string]models.NewsHeadline) []models.NewsHeadline {
	out := make([]models.NewsHeadline, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Published, out[j].Published
		switch {
		case pi == nil && pj == nil:
			return out[i].Title < out[j].Title
		case pi == nil:
			return false
		case pj == nil:
			return true
		case pi.Equal(*pj):
			return out[i].Title < out[j].Title
		}
		return pi.After(*pj)
	})
	return out
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
