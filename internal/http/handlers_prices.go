package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fuellog/internal/core"
	applog "fuellog/internal/log"
	"fuellog/internal/suggest"
)

type priceRequest struct {
	Price float64 `json:"price"`
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.reference.ListFuelPrices(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.OpList, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// handleUpdatePrice answers 404 when the fuel type has no price record.
func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	fuelType := sanitizeInput(chi.URLParam(r, "fuelType"))

	var req priceRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, applog.OpUpdate, http.StatusUnprocessableEntity)
		return
	}

	p, found, err := s.reference.UpdateFuelPrice(r.Context(), fuelType, req.Price)
	if err != nil {
		s.writeError(w, r, err, applog.OpUpdate, http.StatusUnprocessableEntity)
		return
	}
	if !found {
		NotFoundError(fmt.Sprintf("no price recorded for fuel type %q", fuelType)).Write(w)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSuggestPrice relays a suggestion request to the gateway. Provider
// failures answer 502; the suggestion is never applied here.
func (s *Server) handleSuggestPrice(w http.ResponseWriter, r *http.Request) {
	var req suggest.Request
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, applog.OpSuggest, http.StatusBadRequest)
		return
	}
	req.FuelType = core.FuelType(sanitizeInput(string(req.FuelType)))

	resp, err := s.suggestions.Suggest(r.Context(), req)
	if err != nil {
		if errorResponse(err, http.StatusBadRequest).statusCode == http.StatusInternalServerError {
			s.log.LogError(r.Context(), "Suggestion provider failed", err, applog.ComponentSuggest, applog.OpSuggest, nil)
			ErrorResponse(http.StatusBadGateway, "suggestion provider failed").Write(w)
			return
		}
		s.writeError(w, r, err, applog.OpSuggest, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
