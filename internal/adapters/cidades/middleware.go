package cidades

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"citydesk/internal/core"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id between client and server.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Instrument assigns a request id, logs each request and records HTTP metrics.
func Instrument(next http.Handler, logger *slog.Logger, metrics *core.MetricsCollector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		if metrics != nil {
			metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), rec.status, duration)
		}
		if logger != nil {
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", duration,
				"request_id", requestID,
			)
		}
	})
}

// routeLabel collapses identifiers so metric cardinality stays bounded.
func routeLabel(path string) string {
	path = strings.TrimSuffix(path, "/")
	for _, prefix := range []string{"/cidades/", "/comercios/"} {
		if strings.HasPrefix(path, prefix) {
			return prefix + "{id}"
		}
	}
	return path
}

// NewRouter mounts the resources, the health probe and the metrics endpoint.
func NewRouter(h *Handler, metrics *core.MetricsCollector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/cidades", h)
	mux.Handle("/cidades/", h)
	mux.Handle("/comercios", h)
	mux.Handle("/comercios/", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		mux.Handle(metrics.Path(), metrics.Handler())
	}
	return Instrument(mux, h.Logger, metrics)
}
