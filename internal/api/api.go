package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/raffaelramalhorosa/smart-display/internal/background"
	"github.com/raffaelramalhorosa/smart-display/internal/display"
	"github.com/raffaelramalhorosa/smart-display/internal/models"
	"github.com/raffaelramalhorosa/smart-display/internal/rotation"
	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

var tracer = otel.Tracer("github.com/raffaelramalhorosa/smart-display/internal/api")

// Display is the display state the handlers expose.
type Display interface {
	Snapshot() display.Snapshot
	Background() background.Snapshot
	SideInfo() rotation.View
	Panels() rotation.View
	Forecast(ctx context.Context) store.Record[models.WeeklyForecast]
	Headlines(limit int) ([]models.NewsHeadline, bool)
	SetStorm(near bool)
}

// Server holds dependencies for the HTTP handlers.
type Server struct {
	display Display
	feeds   *store.Store
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New wires up routes and returns a ready-to-use Server.
func New(d Display, feeds *store.Store, logger *slog.Logger) *Server {
	srv := &Server{display: d, feeds: feeds, logger: logger, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
	defer span.End()
	span.SetAttributes(attribute.String("http.route", r.URL.Path))
	s.mux.ServeHTTP(w, r.WithContext(ctx))
}

// ---------- Routes ----------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/display", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/display/background", s.handleBackground)
	s.mux.HandleFunc("GET /api/display/slides", s.handleSlides)
	s.mux.HandleFunc("GET /api/display/panels", s.handlePanels)
	s.mux.HandleFunc("GET /api/display/forecast", s.handleForecast)
	s.mux.HandleFunc("POST /api/display/storm", s.handleStorm)

	s.mux.HandleFunc("GET /api/feeds", s.handleListFeeds)
	s.mux.HandleFunc("POST /api/feeds", s.handleAddFeed)
	s.mux.HandleFunc("DELETE /api/feeds/{id}", s.handleRemoveFeed)

	s.mux.HandleFunc("GET /api/headlines", s.handleListHeadlines)
}

// ---------- Handlers ----------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.display.Snapshot())
}

func (s *Server) handleBackground(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.display.Background())
}

func (s *Server) handleSlides(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.display.SideInfo())
}

func (s *Server) handlePanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.display.Panels())
}

type forecastResponse struct {
	Days      []models.ForecastDay `json:"days"`
	Degraded  bool                 `json:"degraded"`
	UpdatedAt *int64               `json:"updatedAt,omitempty"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	rec := s.display.Forecast(r.Context())
	resp := forecastResponse{Days: []models.ForecastDay{}, Degraded: rec.Degraded, UpdatedAt: rec.Timestamp}
	if rec.Payload != nil {
		resp.Days = rec.Payload.Days
	}
	writeJSON(w, http.StatusOK, resp)
}

type stormRequest struct {
	Near *bool `json:"near"`
}

func (s *Server) handleStorm(w http.ResponseWriter, r *http.Request) {
	var req stormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Near == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "near is required"})
		return
	}

	s.display.SetStorm(*req.Near)
	s.logger.Info("storm signal received", "near", *req.Near)
	writeJSON(w, http.StatusOK, s.display.Background())
}

func (s *Server) handleListFeeds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.feeds.ListFeeds())
}

func (s *Server) handleAddFeed(w http.ResponseWriter, r *http.Request) {
	var req models.AddFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	if req.Name == "" || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and url are required"})
		return
	}

	feed := s.feeds.AddFeed(req.Name, req.URL)
	s.logger.Info("feed added", "id", feed.ID, "name", feed.Name)
	writeJSON(w, http.StatusCreated, feed)
}

func (s *Server) handleRemoveFeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.feeds.RemoveFeed(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "feed not found"})
		return
	}
	s.logger.Info("feed removed", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "feed removed"})
}

func (s *Server) handleListHeadlines(w http.ResponseWriter, r *http.Request) {
	limit := display.MaxHeadlines
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, loading := s.display.Headlines(limit)
	if items == nil {
		items = []models.NewsHeadline{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "loading": loading})
}

// ---------- Helpers ----------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
