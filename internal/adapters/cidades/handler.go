// Package cidades exposes the city and commerce service over the /cidades and
// /comercios REST resources.
package cidades

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"citydesk/internal/core"
	"citydesk/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Service is the subset of core.Service the handler drives.
type Service interface {
	ListCities(ctx context.Context) ([]domain.City, error)
	GetCity(ctx context.Context, id int64) (domain.City, error)
	CreateCity(ctx context.Context, city domain.City) (domain.City, domain.Result, error)
	UpdateCity(ctx context.Context, id int64, city domain.City) (domain.City, domain.Result, error)
	DeleteCity(ctx context.Context, id int64) (domain.Result, error)
	ListCommerces(ctx context.Context) ([]domain.Commerce, error)
	CreateCommerce(ctx context.Context, commerce domain.Commerce) (domain.Commerce, domain.Result, error)
	UpdateCommerce(ctx context.Context, id int64, commerce domain.Commerce) (domain.Commerce, domain.Result, error)
	DeleteCommerce(ctx context.Context, id int64) (domain.Result, error)
}

// Handler serves the /cidades and /comercios resources.
type Handler struct {
	Service Service
	Logger  *slog.Logger
}

// NewHandler constructs a handler over svc.
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{Service: svc, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "service not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/cidades":
		h.handleCities(w, r)
	case strings.HasPrefix(path, "/cidades/"):
		h.handleCity(w, r, strings.TrimPrefix(path, "/cidades/"))
	case path == "/comercios":
		h.handleCommerces(w, r)
	case strings.HasPrefix(path, "/comercios/"):
		h.handleCommerce(w, r, strings.TrimPrefix(path, "/comercios/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleCities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cities, err := h.Service.ListCities(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cities)
	case http.MethodPost:
		var city domain.City
		if !decodeBody(w, r, &city) {
			return
		}
		created, _, err := h.Service.CreateCity(r.Context(), city)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleCity(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		city, err := h.Service.GetCity(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, city)
	case http.MethodPut:
		var city domain.City
		if !decodeBody(w, r, &city) {
			return
		}
		updated, _, err := h.Service.UpdateCity(r.Context(), id, city)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, err := h.Service.DeleteCity(r.Context(), id); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleCommerces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		commerces, err := h.Service.ListCommerces(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, commerces)
	case http.MethodPost:
		var commerce domain.Commerce
		if !decodeBody(w, r, &commerce) {
			return
		}
		created, _, err := h.Service.CreateCommerce(r.Context(), commerce)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleCommerce(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var commerce domain.Commerce
		if !decodeBody(w, r, &commerce) {
			return
		}
		updated, _, err := h.Service.UpdateCommerce(r.Context(), id, commerce)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, err := h.Service.DeleteCommerce(r.Context(), id); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var violation domain.RuleViolationError
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &violation):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      err.Error(),
			"violations": violation.Result.Violations,
		})
	default:
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
