package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stylerd/internal/cache"
	"stylerd/internal/jobs"
	"stylerd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListResources() []types.Resource
	Rescan(ctx context.Context) (int, error)
	Status() types.StatusResponse
	SubmitJob(req types.JobRequest) (types.JobStatus, error)
	JobStatus(id string) (types.JobStatus, bool)
	EvictEntry(key string) error
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// ListResources godoc
	// @Summary List registered resources
	// @Produce json
	// @Success 200 {object} types.ResourcesResponse
	// @Router /models [get]
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ResourcesResponse{Resources: svc.ListResources()})
	})

	// Rescan godoc
	// @Summary Rescan resource directories and drop stale cache entries
	// @Produce json
	// @Success 200 {object} map[string]int
	// @Router /models/rescan [post]
	r.Post("/models/rescan", func(w http.ResponseWriter, r *http.Request) {
		// Reconciling the cache can block behind pinned entries; shutdown
		// or client disconnect must be able to abort the wait.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		n, err := svc.Rescan(ctx)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"registered": n})
	})

	// Status godoc
	// @Summary Cache, memory and job counters
	// @Produce json
	// @Success 200 {object} types.StatusResponse
	// @Router /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	// SubmitJob godoc
	// @Summary Submit a generation job
	// @Accept json
	// @Produce json
	// @Param request body types.JobRequest true "job request"
	// @Success 202 {object} types.JobStatus
	// @Failure 400 {object} types.ErrorResponse
	// @Failure 404 {object} types.ErrorResponse
	// @Failure 429 {object} types.ErrorResponse
	// @Router /jobs [post]
	r.Post("/jobs", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.JobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		start := time.Now()
		st, err := svc.SubmitJob(req)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("job_queue_full")
			}
			writeJSONError(w, status, err.Error())
			logRequest(r, "job submit", status, time.Since(start), err)
			return
		}
		writeJSON(w, http.StatusAccepted, st)
		logRequest(r, "job submit", http.StatusAccepted, time.Since(start), nil)
	})

	// JobStatus godoc
	// @Summary Poll a job
	// @Produce json
	// @Param id path string true "job id"
	// @Success 200 {object} types.JobStatus
	// @Failure 404 {object} types.ErrorResponse
	// @Router /jobs/{id} [get]
	r.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, ok := svc.JobStatus(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "unknown job: "+id)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	// EvictEntry godoc
	// @Summary Evict one cache entry
	// @Param key path string true "cache key"
	// @Success 204
	// @Failure 404 {object} types.ErrorResponse
	// @Failure 409 {object} types.ErrorResponse
	// @Router /cache/{key} [delete]
	r.Delete("/cache/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if err := svc.EvictEntry(key); err != nil {
			writeJSONError(w, errorStatus(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case jobs.IsValidation(err):
		return http.StatusBadRequest
	case jobs.IsUnknownResource(err), cache.IsNotFound(err):
		return http.StatusNotFound
	case jobs.IsTooBusy(err):
		return http.StatusTooManyRequests
	case cache.IsBusy(err):
		return http.StatusConflict
	case cache.IsCapacityExceeded(err):
		return http.StatusInsufficientStorage
	default:
		if he, ok := err.(HTTPError); ok {
			return he.StatusCode()
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
