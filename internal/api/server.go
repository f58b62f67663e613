// CLAUDE:SUMMARY Local HTTP surface over a session: list studies, scrape the active study, run a longitudinal analysis, read the run journal.
// Package api exposes a session over HTTP for local tooling. Every run
// endpoint answers 409 while another run holds the tab.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/sonodraft/internal/eventlog"
	"github.com/hazyhaar/sonodraft/internal/session"
	"github.com/hazyhaar/sonodraft/orchestrate"
	"github.com/hazyhaar/sonodraft/report"
	"github.com/hazyhaar/sonodraft/scrape"
	"github.com/hazyhaar/sonodraft/study"
)

// Server routes HTTP requests to a session.
type Server struct {
	sess   *session.Session
	logger *slog.Logger
}

// New creates a Server.
func New(sess *session.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sess: sess, logger: logger}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withSecurityHeaders)
	r.Use(maxJSONBody(maxRequestBody))
	r.Use(traceID(s.logger))

	r.Get("/health", s.handleHealth)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the /v1 endpoints on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/studies", s.handleStudies)
		r.Post("/scrape", s.handleScrape)
		r.Post("/history", s.handleHistory)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{run_id}/events", s.handleEvents)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := map[string]string{"status": "ok", "reportService": "ok"}
	if err := s.sess.Health(r.Context()); err != nil {
		out["reportService"] = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStudies(w http.ResponseWriter, r *http.Request) {
	listing, err := s.sess.ListStudies(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

type scrapeRequest struct {
	DryRun   bool `json:"dryRun"`
	NoImages bool `json:"noImages"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	res, err := s.sess.ScrapeActive(r.Context(), session.ScrapeOptions{DryRun: req.DryRun, NoImages: req.NoImages})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type historyRequest struct {
	Confirm   bool   `json:"confirm"`
	StudyType string `json:"studyType"`
}

// handleHistory runs a longitudinal analysis with the answers given in the
// request. An unknown study type is passed through so the run aborts with
// its own reason.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	analysis, err := study.ParseAnalysisType(req.StudyType)
	if err != nil {
		analysis = study.AnalysisType(req.StudyType)
	}
	res, err := s.sess.RunHistory(r.Context(), &orchestrate.Scripted{Approve: req.Confirm, StudyType: analysis})
	if err != nil && (res == nil || res.Result == nil) {
		s.fail(w, r, err)
		return
	}
	if err != nil {
		requestLogger(r.Context(), s.logger).Warn("api: history run interrupted", "run_id", res.RunID, "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.sess.Runs(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []eventlog.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "run_id")
	events, err := s.sess.Events(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, errors.New("unknown run "+id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": id, "events": events})
}

// fail maps session, scrape and service errors to a status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		requestLogger(r.Context(), s.logger).Error("api: request failed", "status", code, "error", err)
	}
	writeError(w, code, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoEventLog):
		return http.StatusNotFound
	case errors.Is(err, scrape.ErrNotAStudyPage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, report.ErrServiceRejected):
		return http.StatusBadGateway
	case errors.Is(err, report.ErrServiceUnreachable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeOptional decodes a JSON body when there is one. An empty body
// leaves v at its zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
