package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeafMist/news-analytics/backend/internal/analytics"
	"github.com/DeafMist/news-analytics/backend/internal/auth"
	"github.com/DeafMist/news-analytics/backend/internal/models"
	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

const maxBodyBytes = 1 << 20

type engine interface {
	Run(ctx context.Context, op, userID string, f analytics.Filter) (any, error)
	Search(ctx context.Context, userID string, f analytics.Filter, p analytics.Page) (models.SearchPage, error)
	Sources(ctx context.Context) (models.SourceList, error)
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type server struct {
	log      *slog.Logger
	engine   engine
	health   healthChecker
	profiles profile.Store
	verifier *auth.Verifier
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/analytics", func(r chi.Router) {
		r.Use(s.verifier.Middleware)
		r.Post("/data", s.handleOperation(analytics.OpDashboard))
		r.Post("/v2/{operation}", s.handleV2)

		r.Post("/news/search", s.handleSearch)
		r.Get("/news/sources", s.handleSources)

		r.Get("/keywords", s.handleGetKeywords)
		r.Put("/keywords", s.handlePutKeywords)
		r.Delete("/keywords", s.handleDeleteKeywords)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleV2(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operation")
	if op == analytics.OpDashboard {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "use /analytics/data for the dashboard"})
		return
	}
	s.handleOperation(op)(w, r)
}

func (s *server) handleOperation(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f analytics.Filter
		if err := decodeBody(w, r, &f); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		userID, _ := auth.UserID(ctx)
		result, err := s.engine.Run(ctx, op, userID, f)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type searchRequest struct {
	analytics.Filter
	analytics.Page
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	userID, _ := auth.UserID(ctx)
	page, err := s.engine.Search(ctx, userID, req.Filter, req.Page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *server) handleSources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	sources, err := s.engine.Sources(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

type keywordsRequest struct {
	Keywords []string `json:"keywords"`
	Operator string   `json:"operator"`
}

func (s *server) handleGetKeywords(w http.ResponseWriter, r *http.Request) {
	if !s.requireProfiles(w) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	p, err := s.profiles.GetUserKeywords(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handlePutKeywords(w http.ResponseWriter, r *http.Request) {
	if !s.requireProfiles(w) {
		return
	}
	var req keywordsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	userID, _ := auth.UserID(r.Context())
	p, err := s.profiles.SetKeywords(r.Context(), profile.Profile{
		UserID:   userID,
		Keywords: req.Keywords,
		Operator: profile.Operator(req.Operator),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDeleteKeywords(w http.ResponseWriter, r *http.Request) {
	if !s.requireProfiles(w) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	if err := s.profiles.DeleteKeywords(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) requireProfiles(w http.ResponseWriter) bool {
	if s.profiles == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "keyword profiles are disabled"})
		return false
	}
	return true
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidInput), errors.Is(err, profile.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, profile.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("err", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("request body must be a JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
