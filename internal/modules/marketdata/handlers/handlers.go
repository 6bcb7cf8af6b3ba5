// Package handlers provides HTTP handlers for market data access.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/marketdata"
)

// Handler handles market data HTTP requests
type Handler struct {
	service *marketdata.Service
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service *marketdata.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleValidateTicker handles GET /api/validate-ticker/{ticker}
func (h *Handler) HandleValidateTicker(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(strings.ToUpper(chi.URLParam(r, "ticker")))
	if ticker == "" {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "ticker must not be empty",
		})
		return
	}

	valid, message := h.service.ValidateTicker(r.Context(), ticker)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":  ticker,
		"valid":   valid,
		"message": message,
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
