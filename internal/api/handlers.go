// Package api serves the query engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/cache"
	"hr-query-engine/internal/query/engine"
)

const maxBodyBytes = 64 << 10

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Service is the engine surface exposed over HTTP.
type Service interface {
	ProcessQueryWithFilters(ctx context.Context, text string, filters map[string]interface{}) *models.Envelope
	PerformanceAnalytics() engine.PerformanceReport
	QuerySuggestions(partial string) []string
	CacheStats() cache.Stats
	ClearCache(ctx context.Context) (int, error)
	Ready(ctx context.Context) error
}

type QueryRequest struct {
	Query   string                 `json:"query"`
	Filters map[string]interface{} `json:"filters,omitempty"`
}

// Handler holds HTTP handlers for the query API.
type Handler struct {
	svc     Service
	version string
	logger  Logger
}

func NewHandler(svc Service, version string, log Logger) *Handler {
	return &Handler{
		svc:     svc,
		version: version,
		logger: log.With(map[string]interface{}{
			"component": "http-api",
		}),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/query", h.handleQuery)
	mux.HandleFunc("GET /api/v1/analytics", h.handleAnalytics)
	mux.HandleFunc("GET /api/v1/suggestions", h.handleSuggestions)
	mux.HandleFunc("GET /api/v1/cache/stats", h.handleCacheStats)
	mux.HandleFunc("POST /api/v1/cache/clear", h.handleCacheClear)

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Routes returns the registered mux wrapped with request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.logRequests(mux)
}

// The envelope is returned with 200 whatever its status; callers read
// "status" for success, success_fallback or error.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.svc.ProcessQueryWithFilters(r.Context(), req.Query, req.Filters))
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.PerformanceAnalytics())
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":       partial,
		"suggestions": h.svc.QuerySuggestions(partial),
	})
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats())
}

func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.ClearCache(r.Context())
	if err != nil {
		h.logger.Error("cache clear failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "cleared",
		"removed": removed,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ready(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if strings.HasPrefix(r.URL.Path, "/metrics") || r.URL.Path == "/health" {
			return
		}
		h.logger.Info("http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
