package http

import (
	"context"
	"net/http"
	"time"

	applog "fuellog/internal/log"
)

type (
	vehicleRequest struct {
		Number string `json:"number"`
		Model  string `json:"model"`
	}

	driverRequest struct {
		Name string `json:"name"`
	}
)

// handleHealth is the liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the backing store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := s.reference.ListVehicles(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.OpList, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, applog.OpCreate, http.StatusUnprocessableEntity)
		return
	}
	v, err := s.reference.AddVehicle(r.Context(), sanitizeInput(req.Number), sanitizeInput(req.Model))
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	ds, err := s.reference.ListDrivers(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.OpList, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, applog.OpCreate, http.StatusUnprocessableEntity)
		return
	}
	d, err := s.reference.AddDriver(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
