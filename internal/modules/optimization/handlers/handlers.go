// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/optimization"
)

const (
	minTickers = 2
	maxTickers = 20

	defaultFrontierPoints = 30
	minFrontierPoints     = 2
	maxFrontierPoints     = 100
)

// Handler handles optimization HTTP requests
type Handler struct {
	service *optimization.Service
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service *optimization.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest is the body of POST /api/optimize
type OptimizeRequest struct {
	Tickers   []string `json:"tickers"`
	Method    string   `json:"method"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

// FrontierRequest is the body of POST /api/frontier
type FrontierRequest struct {
	Tickers   []string `json:"tickers"`
	NPoints   *int     `json:"n_points,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

// HandleOptimize handles POST /api/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tickers, err := normalizeTickers(req.Tickers)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	mode, err := optimization.ParseMode(req.Method)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.service.Optimize(r.Context(), tickers, mode, start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleFrontier handles POST /api/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	var req FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tickers, err := normalizeTickers(req.Tickers)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	nPoints := defaultFrontierPoints
	if req.NPoints != nil {
		nPoints = *req.NPoints
	}
	if nPoints < minFrontierPoints || nPoints > maxFrontierPoints {
		h.writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("n_points must be between %d and %d, got %d", minFrontierPoints, maxFrontierPoints, nPoints))
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.service.Frontier(r.Context(), tickers, nPoints, start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if len(result.Points) == 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "no frontier points could be solved for the given assets")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /api/optimize/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.service.History(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list optimization history")
		h.writeError(w, http.StatusInternalServerError, "Failed to list optimization history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  records,
		"count": len(records),
	})
}

// writeDomainError maps service errors to HTTP status codes. Bad
// inputs (too little data, unknown method, no usable prices) are
// client errors; solver breakdowns and everything else are 500s.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var insufficientErr *optimization.InsufficientDataError
	var methodErr *optimization.UnknownMethodError
	var noDataErr *marketdata.NoDataError
	var failedErr *optimization.OptimizationFailedError

	switch {
	case errors.As(err, &insufficientErr), errors.As(err, &methodErr), errors.As(err, &noDataErr):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &failedErr):
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Error().Err(err).Msg("Optimization request failed")
		h.writeError(w, http.StatusInternalServerError, "Optimization request failed: "+err.Error())
	}
}

func normalizeTickers(tickers []string) ([]string, error) {
	cleaned := make([]string, 0, len(tickers))
	seen := make(map[string]bool)
	for _, t := range tickers {
		t = strings.TrimSpace(strings.ToUpper(t))
		if t == "" {
			return nil, fmt.Errorf("tickers must not contain empty symbols")
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		cleaned = append(cleaned, t)
	}

	if len(cleaned) < minTickers || len(cleaned) > maxTickers {
		return nil, fmt.Errorf("expected between %d and %d distinct tickers, got %d", minTickers, maxTickers, len(cleaned))
	}

	return cleaned, nil
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time

	if startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return start, end, fmt.Errorf("start_date must be YYYY-MM-DD: %v", err)
		}
		start = parsed
	}

	if endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return start, end, fmt.Errorf("end_date must be YYYY-MM-DD: %v", err)
		}
		end = parsed
	}

	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return start, end, fmt.Errorf("start_date must be before end_date")
	}

	return start, end, nil
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
