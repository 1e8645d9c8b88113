// Package api exposes the HTTP interface for the scanner service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetline/minutes-scanner/internal/metrics"
	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// maxListedResults caps the results listing response size.
const maxListedResults = 200

// maxListedJobs caps the history response size.
const maxListedJobs = 50

// ScanStarter triggers a background scan job.
type ScanStarter interface {
	StartScan(ctx context.Context, cities []scanner.CityRequest) (scanner.ScanJob, error)
}

// Server wires HTTP handlers to the orchestrator and store.
type Server struct {
	router  chi.Router
	store   scanner.Store
	starter ScanStarter
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store scanner.Store, starter ScanStarter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   store,
		starter: starter,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/scanner", func(r chi.Router) {
		r.Post("/scan", s.triggerScan)
		r.Get("/scan/{job_id}", s.scanStatus)
		r.Get("/results", s.scanResults)
		r.Get("/history", s.scanHistory)
		r.Get("/stats", s.scanStats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type triggerScanRequest struct {
	Cities []scanner.CityRequest `json:"cities"`
}

// triggerScan starts a new scan job. The scan runs in a background
// goroutine; the response carries the job's initial running state.
func (s *Server) triggerScan(w http.ResponseWriter, r *http.Request) {
	var req triggerScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateCities(req.Cities); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := s.starter.StartScan(r.Context(), req.Cities)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func validateCities(cities []scanner.CityRequest) error {
	if len(cities) == 0 {
		return errors.New("at least one city required")
	}
	for _, c := range cities {
		if strings.TrimSpace(c.City) == "" || strings.TrimSpace(c.State) == "" {
			return errors.New(`each city must have "city" and "state" fields`)
		}
	}
	return nil
}

type jobWithResults struct {
	scanner.ScanJob
	Results []scanner.ScanResult `json:"results"`
}

// scanStatus returns the full job record including nested results.
func (s *Server) scanStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, scanner.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "scan job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	results, err := s.store.ListJobResults(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch job results")
		return
	}
	if results == nil {
		results = []scanner.ScanResult{}
	}
	s.writeJSON(w, http.StatusOK, jobWithResults{ScanJob: job, Results: results})
}

// scanResults lists results across all jobs with optional filters.
// Unrecognized query parameters are ignored.
func (s *Server) scanResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := scanner.ResultFilter{
		City:    q.Get("city"),
		State:   q.Get("state"),
		Keyword: q.Get("keyword"),
		Search:  q.Get("search"),
		Limit:   maxListedResults,
	}
	if raw := q.Get("date_from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
			return
		}
		filter.DateFrom = &from
	}
	if raw := q.Get("date_to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
			return
		}
		// Inclusive of the whole end day.
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}
	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch results")
		return
	}
	if results == nil {
		results = []scanner.ScanResult{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

// scanHistory returns the most recent jobs, summary fields only.
func (s *Server) scanHistory(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context(), maxListedJobs)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	if jobs == nil {
		jobs = []scanner.ScanJob{}
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

// scanStats returns aggregate stats for dashboard cards.
func (s *Server) scanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
