package services

import (
	"context"
	"errors"

	"fuellog/internal/core"
	"fuellog/internal/metrics"
	"fuellog/internal/suggest"
)

// SuggestionService counts gateway outcomes.
type SuggestionService struct {
	gateway *suggest.Gateway
	metrics *metrics.Metrics
}

func NewSuggestionService(g *suggest.Gateway, m *metrics.Metrics) *SuggestionService {
	return &SuggestionService{gateway: g, metrics: m}
}

func (s *SuggestionService) Suggest(ctx context.Context, req suggest.Request) (suggest.Response, error) {
	resp, err := s.gateway.Suggest(ctx, req)
	s.metrics.Suggestion(Outcome(resp, err))
	return resp, err
}

// Outcome classifies a gateway result for metrics.
func Outcome(resp suggest.Response, err error) string {
	var (
		verr *core.ValidationError
		ferr *core.DataFormatError
		serr *core.SuggestionSchemaError
		terr *core.SuggestionTimeoutError
	)
	switch {
	case err == nil && resp == suggest.FallbackResponse:
		return metrics.OutcomeFallback
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &verr):
		return metrics.OutcomeValidation
	case errors.As(err, &ferr):
		return metrics.OutcomeDataFormat
	case errors.As(err, &serr):
		return metrics.OutcomeSchema
	case errors.As(err, &terr):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeUnavailable
	}
}
