package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/raffaelramalhorosa/smart-display/internal/api"
	"github.com/raffaelramalhorosa/smart-display/internal/background"
	"github.com/raffaelramalhorosa/smart-display/internal/display"
	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/rotation"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

type stubDisplay struct {
	storm     bool
	forecast  store.Record[models.WeeklyForecast]
	headlines []models.NewsHeadline
	side      rotation.View
}

func (d *stubDisplay) Snapshot() display.Snapshot {
	return display.Snapshot{Background: d.Background(), SideInfo: d.side}
}

func (d *stubDisplay) Background() background.Snapshot {
	return background.Snapshot{
		State:       background.StateSteady,
		Current:     models.BackgroundSlot{URL: "http://backend/img/a.jpg"},
		StormNearby: d.storm,
	}
}

func (d *stubDisplay) SideInfo() rotation.View { return d.side }

func (d *stubDisplay) Panels() rotation.View {
	return rotation.View{Name: "panels", Enabled: true, Slides: rotation.StaticSlides([]string{"weather"})}
}

func (d *stubDisplay) Forecast(context.Context) store.Record[models.WeeklyForecast] {
	return d.forecast
}

func (d *stubDisplay) Headlines(limit int) ([]models.NewsHeadline, bool) {
	if limit < len(d.headlines) {
		return d.headlines[:limit], false
	}
	return d.headlines, false
}

func (d *stubDisplay) SetStorm(near bool) { d.storm = near }

func setup() (*api.Server, *store.Store, *stubDisplay) {
	s := store.New(0)
	d := &stubDisplay{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return api.New(d, s, logger), s, d
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := setup()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	srv, _, d := setup()
	d.side = rotation.View{Name: "side-info", Enabled: true, Slides: []models.Slide{
		{Key: "news", Primary: "Noticias desactivadas", Placeholder: true},
	}}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/display", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap display.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Background.Current.URL != "http://backend/img/a.jpg" {
		t.Fatalf("unexpected background %+v", snap.Background)
	}
	if len(snap.SideInfo.Slides) != 1 || !snap.SideInfo.Slides[0].Placeholder {
		t.Fatalf("unexpected side info %+v", snap.SideInfo)
	}
}

func TestForecastEndpoint(t *testing.T) {
	srv, _, d := setup()
	ts := int64(1_000)
	d.forecast = store.Record[models.WeeklyForecast]{
		Payload:   &models.WeeklyForecast{Days: []models.ForecastDay{{DayName: "Hoy", Max: 25}}},
		Timestamp: &ts,
		Degraded:  true,
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/display/forecast", nil))

	var body struct {
		Days     []models.ForecastDay `json:"days"`
		Degraded bool                 `json:"degraded"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if !body.Degraded || len(body.Days) != 1 || body.Days[0].DayName != "Hoy" {
		t.Fatalf("unexpected forecast body %+v", body)
	}
}

func TestForecastEndpointEmpty(t *testing.T) {
	srv, _, _ := setup()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/display/forecast", nil))

	if !strings.Contains(rec.Body.String(), `"days":[]`) {
		t.Fatalf("expected empty day list, got %s", rec.Body.String())
	}
}

func TestStormEndpoint(t *testing.T) {
	srv, _, d := setup()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/display/storm", strings.NewReader(`{"near":true}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !d.storm {
		t.Fatal("expected storm signal forwarded")
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/display/storm", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without near, got %d", rec.Code)
	}
}

func TestAddFeedEndpoint(t *testing.T) {
	srv, _, _ := setup()

	body, _ := json.Marshal(models.AddFeedRequest{Name: "El País", URL: "https://feeds.elpais.com/portada"})
	req := httptest.NewRequest(http.MethodPost, "/api/feeds", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var feed models.Feed
	json.NewDecoder(rec.Body).Decode(&feed)

	if feed.Name != "El País" {
		t.Fatalf("expected name 'El País', got '%s'", feed.Name)
	}
}

func TestAddFeedValidation(t *testing.T) {
	srv, _, _ := setup()

	body, _ := json.Marshal(models.AddFeedRequest{Name: "", URL: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/feeds", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty fields, got %d", rec.Code)
	}
}

func TestListFeedsEndpoint(t *testing.T) {
	srv, s, _ := setup()
	s.AddFeed("Feed 1", "https://example.com/1")
	s.AddFeed("Feed 2", "https://example.com/2")

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	var feeds []models.Feed
	json.NewDecoder(rec.Body).Decode(&feeds)

	if len(feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(feeds))
	}
}

func TestRemoveFeedEndpoint(t *testing.T) {
	srv, s, _ := setup()
	f := s.AddFeed("To Remove", "https://example.com/rss")

	req := httptest.NewRequest(http.MethodDelete, "/api/feeds/"+f.ID, nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Removing again should 404.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/feeds/"+f.ID, nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestListHeadlinesEndpoint(t *testing.T) {
	srv, _, d := setup()
	d.headlines = []models.NewsHeadline{{Title: "Uno"}, {Title: "Dos"}}

	req := httptest.NewRequest(http.MethodGet, "/api/headlines?limit=1", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	var body struct {
		Items []models.NewsHeadline `json:"items"`
	}
	json.NewDecoder(rec.Body).Decode(&body)

	if len(body.Items) != 1 {
		t.Fatalf("expected 1 headline with limit=1, got %d", len(body.Items))
	}
}
