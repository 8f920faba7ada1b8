// Package server exposes matching and ranking over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/smartrecruit/internal/matching"
	"github.com/spigell/smartrecruit/internal/records"
)

const maxBodyBytes = 4 << 20

// Config holds server configuration.
type Config struct {
	Addr string `mapstructure:"addr"`
}

type Matcher interface {
	MatchRaw(ctx context.Context, rawCandidate, rawJob any, scales records.Scales) (matching.Result, error)
}

type Ranker interface {
	RankCandidatesRaw(ctx context.Context, rawJob any, rawCandidates []any, scales records.Scales, k int) (matching.Ranking, error)
	RankJobsRaw(ctx context.Context, rawCandidate any, rawJobs []any, scales records.Scales, k int) (matching.Ranking, error)
}

type RequestRecorder interface {
	RecordHTTPRequest(method, path, code string)
}

// Deps aggregates what the handlers need. Registry may be nil, in which case
// /metrics is not served.
type Deps struct {
	Matcher  Matcher
	Ranker   Ranker
	Scales   records.Scales
	TopK     int
	Registry *prometheus.Registry
	Metrics  RequestRecorder
	Logger   *zap.Logger
}

type Server struct {
	deps       Deps
	httpServer *http.Server
}

func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	s := &Server{deps: deps}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      300 * time.Second, // long timeout for ranking runs
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/match", s.handleMatch)
	mux.HandleFunc("POST /v1/rank/candidates", s.handleRankCandidates)
	mux.HandleFunc("POST /v1/rank/jobs", s.handleRankJobs)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.deps.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
	}
	return s.withLogging(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.deps.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

type matchRequest struct {
	Candidate any `json:"candidate"`
	Job       any `json:"job"`
}

type rankCandidatesRequest struct {
	Job        any  `json:"job"`
	Candidates any  `json:"candidates"`
	K          *int `json:"k"`
}

type rankJobsRequest struct {
	Candidate any  `json:"candidate"`
	Jobs      any  `json:"jobs"`
	K         *int `json:"k"`
}

type errorResponse struct {
	Error      string                     `json:"error"`
	Validation []*records.ValidationError `json:"validation,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.deps.Matcher.MatchRaw(r.Context(), req.Candidate, req.Job, s.deps.Scales)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRankCandidates(w http.ResponseWriter, r *http.Request) {
	var req rankCandidatesRequest
	if !s.decode(w, r, &req) {
		return
	}
	candidates, err := records.Unwrap(req.Candidates, records.CandidatesKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "candidates: " + err.Error()})
		return
	}
	ranking, err := s.deps.Ranker.RankCandidatesRaw(r.Context(), req.Job, candidates, s.deps.Scales, s.topK(req.K))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleRankJobs(w http.ResponseWriter, r *http.Request) {
	var req rankJobsRequest
	if !s.decode(w, r, &req) {
		return
	}
	jobs, err := records.Unwrap(req.Jobs, records.JobsKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "jobs: " + err.Error()})
		return
	}
	ranking, err := s.deps.Ranker.RankJobsRaw(r.Context(), req.Candidate, jobs, s.deps.Scales, s.topK(req.K))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) topK(k *int) int {
	if k != nil {
		return *k
	}
	return s.deps.TopK
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps validation errors to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if verrs := validationErrors(err); len(verrs) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Validation: verrs})
		return
	}
	s.deps.Logger.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// validationErrors collects every *records.ValidationError in err's tree.
func validationErrors(err error) []*records.ValidationError {
	var out []*records.ValidationError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if verr, ok := err.(*records.ValidationError); ok {
			out = append(out, verr)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var knownPaths = map[string]bool{
	"/v1/match":           true,
	"/v1/rank/candidates": true,
	"/v1/rank/jobs":       true,
	"/healthz":            true,
	"/metrics":            true,
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if !knownPaths[path] {
			path = "other"
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status))
		}
		s.deps.Logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
