package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"rinkcal/internal/config"
	appLog "rinkcal/internal/log"
	"rinkcal/internal/metrics"
	"rinkcal/internal/model"
	"rinkcal/internal/schedule"
)

// Server exposes the aggregated schedule over HTTP.
//
// Endpoints:
//   - GET /health      liveness, always open
//   - GET /api/events  full sorted aggregate (JSON array)
//   - GET /api/teams   configured team descriptors for the filter UI
//   - GET /metrics     Prometheus exposition
type Server struct {
	cfg   *config.Config
	cache *schedule.ResultCache
	mux   *http.ServeMux
}

// NewServer constructs a Server over the given cache.
func NewServer(cfg *config.Config, cache *schedule.ResultCache) *Server {
	s := &Server{
		cfg:   cfg,
		cache: cache,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the full middleware-wrapped handler chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.corsMiddleware(h)
	h = requestIDMiddleware(h)
	h = metricsMiddleware(h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/teams", s.handleTeams)
	s.mux.Handle("/metrics", metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents returns the full aggregate, refreshing through the cache
// when the entry is stale. "No data available" (empty cache and a failed
// cycle) maps to 503 so the UI can tell it apart from a legitimately
// empty schedule.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	events, err := s.cache.GetOrRefresh(r.Context())
	if err != nil {
		appLog.Error("events request failed", err)
		writeError(w, http.StatusServiceUnavailable, "failed to fetch calendar data")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// teamDTO is the JSON view of a configured team. The feed URL stays
// server-side; the UI only needs the grouping labels and roster link.
type teamDTO struct {
	Sex       string `json:"sex"`
	Age       string `json:"age"`
	Level     string `json:"level"`
	Team      string `json:"team"`
	RosterURL string `json:"rosterUrl,omitempty"`
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	teams := s.cfg.Sources()
	dtos := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		dtos = append(dtos, teamDTO{
			Sex:       t.Sex,
			Age:       t.Age,
			Level:     t.Level,
			Team:      t.Label(),
			RosterURL: t.RosterURL,
		})
	}

	writeJSON(w, http.StatusOK, dtos)
}

// corsMiddleware enforces the configured origin allow-list. Requests
// without an Origin header (curl, server-to-server) are always allowed;
// /health is exempt so probes never depend on CORS config.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.originAllowed(origin) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// requestIDMiddleware tags every request with an id for log correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		appLog.Debug("http request", "request_id", rid, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latency.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		metrics.RecordHTTPRequest(r.URL.Path, strconv.Itoa(wrapped.status), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
