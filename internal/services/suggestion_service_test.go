package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuellog/internal/core"
	"fuellog/internal/metrics"
	"fuellog/internal/suggest"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, string) (string, error) {
	return s.reply, s.err
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		resp suggest.Response
		err  error
		want string
	}{
		{"ok", suggest.Response{SuggestedPrice: 280, Reasoning: "x"}, nil, metrics.OutcomeOK},
		{"fallback", suggest.FallbackResponse, nil, metrics.OutcomeFallback},
		{"validation", suggest.Response{}, core.NewValidationError("fuelType", "bad"), metrics.OutcomeValidation},
		{"format", suggest.Response{}, &core.DataFormatError{Field: "historicalData", Err: errors.New("x")}, metrics.OutcomeDataFormat},
		{"schema", suggest.Response{}, &core.SuggestionSchemaError{Reason: "x"}, metrics.OutcomeSchema},
		{"timeout", suggest.Response{}, &core.SuggestionTimeoutError{After: time.Second}, metrics.OutcomeTimeout},
		{"other", suggest.Response{}, errors.New("503"), metrics.OutcomeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.resp, tt.err))
		})
	}
}

func TestSuggestionServiceCountsOutcomes(t *testing.T) {
	m := metrics.New()
	svc := NewSuggestionService(suggest.New(stubGenerator{reply: `{"suggestedPrice":281,"reasoning":"up"}`}), m)

	resp, err := svc.Suggest(context.Background(), suggest.Request{
		FuelType:          core.Petrol,
		HistoricalData:    `[]`,
		CurrentMarketData: `{}`,
	})
	require.NoError(t, err)
	assert.Equal(t, 281.0, resp.SuggestedPrice)

	_, err = svc.Suggest(context.Background(), suggest.Request{FuelType: core.Petrol, HistoricalData: `{`, CurrentMarketData: `{}`})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Suggestions.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Suggestions.WithLabelValues(metrics.OutcomeDataFormat)))
}
