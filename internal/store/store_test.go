package store_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

func at(t time.Time) *time.Time { return &t }

func TestAddAndListFeeds(t *testing.T) {
	s := store.New(0)

	f1 := s.AddFeed("Lobsters", "https://lobste.rs/rss")
	f2 := s.AddFeed("Go Blog", "https://go.dev/blog/feed.atom")

	feeds := s.ListFeeds()
	if len(feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(feeds))
	}
	if f1.ID == f2.ID {
		t.Fatal("feed IDs should be unique")
	}
	if feeds[0].Name != "Go Blog" {
		t.Fatalf("expected feeds ordered by name, got %q first", feeds[0].Name)
	}
}

func TestAddFeedSameURLIsIdempotent(t *testing.T) {
	s := store.New(0)

	a := s.AddFeed("A", "https://example.com/rss")
	b := s.AddFeed("B", "https://example.com/rss")

	if a.ID != b.ID || b.Name != "A" {
		t.Fatalf("expected existing feed back, got %+v", b)
	}
	if len(s.ListFeeds()) != 1 {
		t.Fatal("expected a single feed")
	}
}

func TestRemoveFeedCascadesHeadlines(t *testing.T) {
	s := store.New(0)
	f := s.AddFeed("Test", "https://example.com/rss")
	s.SaveHeadlines(f.ID, []models.NewsHeadline{
		{Title: "Post 1", Link: "https://example.com/1"},
		{Title: "Post 2", Link: "https://example.com/2"},
	})

	if !s.RemoveFeed(f.ID) {
		t.Fatal("expected removal to succeed")
	}
	if s.RemoveFeed(f.ID) {
		t.Fatal("expected removal of non-existent feed to return false")
	}
	if len(s.ListHeadlines(0)) != 0 {
		t.Fatal("expected headlines to be removed with feed")
	}
}

func TestSaveHeadlinesDeduplication(t *testing.T) {
	s := store.New(0)
	f := s.AddFeed("Test", "https://example.com/rss")

	items := []models.NewsHeadline{
		{Title: "Post 1", Link: "https://example.com/1"},
		{Title: "Post 2", Link: "https://example.com/2"},
	}
	if saved := s.SaveHeadlines(f.ID, items); saved != 2 {
		t.Fatalf("expected 2 saved, got %d", saved)
	}
	if saved := s.SaveHeadlines(f.ID, items); saved != 0 {
		t.Fatalf("expected 0 saved on duplicate insert, got %d", saved)
	}
}

func TestSaveHeadlinesUnknownFeedDropped(t *testing.T) {
	s := store.New(0)
	if saved := s.SaveHeadlines("feed_missing", []models.NewsHeadline{{Title: "x"}}); saved != 0 {
		t.Fatalf("expected nothing saved, got %d", saved)
	}
}

func TestListHeadlinesSortedAndLimited(t *testing.T) {
	s := store.New(0)
	a := s.AddFeed("A", "https://a.example/rss")
	b := s.AddFeed("B", "https://b.example/rss")

	now := time.Now()
	s.SaveHeadlines(a.ID, []models.NewsHeadline{
		{Title: "Old", Link: "a/old", Published: at(now.Add(-2 * time.Hour))},
		{Title: "Undated", Link: "a/undated"},
		{Title: "New", Link: "a/new", Published: at(now)},
	})
	s.SaveHeadlines(b.ID, []models.NewsHeadline{
		{Title: "Mid", Link: "b/mid", Published: at(now.Add(-time.Hour))},
	})

	all := s.ListHeadlines(0)
	want := []string{"New", "Mid", "Old", "Undated"}
	if len(all) != len(want) {
		t.Fatalf("expected %d headlines, got %d", len(want), len(all))
	}
	for i, title := range want {
		if all[i].Title != title {
			t.Fatalf("position %d: expected %q, got %q", i, title, all[i].Title)
		}
	}

	if limited := s.ListHeadlines(1); len(limited) != 1 {
		t.Fatalf("expected 1 headline with limit, got %d", len(limited))
	}
}

func TestSaveHeadlinesTrimsToNewest(t *testing.T) {
	s := store.New(3)
	f := s.AddFeed("Busy", "https://busy.example/rss")

	now := time.Now()
	var items []models.NewsHeadline
	for i := 0; i < 5; i++ {
		items = append(items, models.NewsHeadline{
			Title:     fmt.Sprintf("h%d", i),
			Link:      fmt.Sprintf("busy/%d", i),
			Published: at(now.Add(time.Duration(i) * time.Minute)),
		})
	}
	s.SaveHeadlines(f.ID, items)

	got := s.ListHeadlines(0)
	if len(got) != 3 {
		t.Fatalf("expected 3 retained, got %d", len(got))
	}
	if got[0].Title != "h4" || got[2].Title != "h2" {
		t.Fatalf("expected newest kept, got %q..%q", got[0].Title, got[2].Title)
	}
}
