// Package suggest asks an external text generator for a fuel price
// suggestion and checks that the reply has the expected shape.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"fuellog/internal/core"
	applog "fuellog/internal/log"
)

// Policy selects what Suggest returns when a call fails.
type Policy string

const (
	// PolicyPropagate returns typed errors to the caller.
	PolicyPropagate Policy = "propagate"
	// PolicyFallback masks every failure with FallbackResponse.
	PolicyFallback Policy = "fallback"
)

const DefaultTimeout = 30 * time.Second

// FallbackResponse is returned under PolicyFallback.
var FallbackResponse = Response{SuggestedPrice: 0, Reasoning: "disabled"}

type (
	Request struct {
		FuelType          core.FuelType `json:"fuelType"`
		HistoricalData    string        `json:"historicalData"`
		CurrentMarketData string        `json:"currentMarketData"`
	}

	Response struct {
		SuggestedPrice float64 `json:"suggestedPrice"`
		Reasoning      string  `json:"reasoning"`
	}

	// Generator sends a prompt to a text generation capability and returns its raw reply.
	Generator interface {
		Generate(ctx context.Context, prompt string) (string, error)
	}
)

// ParsePolicy accepts "propagate" or "fallback".
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyPropagate, PolicyFallback:
		return p, nil
	}
	return "", fmt.Errorf("invalid suggestion policy %q: must be %q or %q", s, PolicyPropagate, PolicyFallback)
}

type Gateway struct {
	gen     Generator
	policy  Policy
	timeout time.Duration
	logger  *applog.Logger
}

type Option func(*Gateway)

func WithPolicy(p Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

func WithLogger(logger *applog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New returns a gateway that propagates errors and times out after
// DefaultTimeout unless configured otherwise.
func New(gen Generator, opts ...Option) *Gateway {
	g := &Gateway{
		gen:     gen,
		policy:  PolicyPropagate,
		timeout: DefaultTimeout,
		logger:  applog.Default(applog.ComponentSuggest),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Policy() Policy { return g.policy }

// Suggest validates req, calls the generator once and validates the reply.
// Failures are *core.ValidationError, *core.DataFormatError,
// *core.SuggestionSchemaError, *core.SuggestionTimeoutError or a wrapped
// generator error, unless the gateway uses PolicyFallback.
func (g *Gateway) Suggest(ctx context.Context, req Request) (Response, error) {
	resp, err := g.suggest(ctx, req)
	if err == nil {
		return resp, nil
	}
	if g.policy == PolicyFallback {
		g.logger.WarnContext(ctx, "Price suggestion failed, returning fallback",
			"fuel_type", req.FuelType,
			"error", err)
		return FallbackResponse, nil
	}
	return Response{}, err
}

func (g *Gateway) suggest(ctx context.Context, req Request) (Response, error) {
	if !req.FuelType.Valid() {
		return Response{}, core.NewValidationError("fuelType", "must be one of Petrol, Diesel, HOBC")
	}
	historical, err := canonicalJSON(req.HistoricalData)
	if err != nil {
		return Response{}, &core.DataFormatError{Field: "historicalData", Err: err}
	}
	market, err := canonicalJSON(req.CurrentMarketData)
	if err != nil {
		return Response{}, &core.DataFormatError{Field: "currentMarketData", Err: err}
	}

	prompt, err := BuildPrompt(req.FuelType, historical, market)
	if err != nil {
		return Response{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.gen.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			if ctx.Err() == nil {
				return Response{}, &core.SuggestionTimeoutError{After: g.timeout}
			}
		}
		return Response{}, fmt.Errorf("generate suggestion: %w", err)
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return Response{}, err
	}

	g.logger.InfoContext(ctx, "Price suggestion generated",
		"fuel_type", req.FuelType,
		"suggested_price", resp.SuggestedPrice,
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// canonicalJSON parses s as a single JSON value and re-encodes it compactly
// with object keys sorted. Numbers keep their literal form.
func canonicalJSON(s string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", errors.New("unexpected data after JSON value")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// DecodeResponse checks a generator reply against
// {suggestedPrice: number, reasoning: string}. A surrounding markdown code
// fence is removed first.
func DecodeResponse(raw string) (Response, error) {
	body := stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Response{}, &core.SuggestionSchemaError{Reason: "reply is not a JSON object", Raw: raw}
	}

	priceRaw, ok := fields["suggestedPrice"]
	if !ok {
		return Response{}, &core.SuggestionSchemaError{Reason: "missing suggestedPrice", Raw: raw}
	}
	var resp Response
	if err := strictUnmarshal(priceRaw, &resp.SuggestedPrice); err != nil {
		return Response{}, &core.SuggestionSchemaError{Reason: "suggestedPrice is not a number", Raw: raw}
	}
	if math.IsNaN(resp.SuggestedPrice) || math.IsInf(resp.SuggestedPrice, 0) {
		return Response{}, &core.SuggestionSchemaError{Reason: "suggestedPrice is not finite", Raw: raw}
	}

	reasonRaw, ok := fields["reasoning"]
	if !ok {
		return Response{}, &core.SuggestionSchemaError{Reason: "missing reasoning", Raw: raw}
	}
	if err := strictUnmarshal(reasonRaw, &resp.Reasoning); err != nil {
		return Response{}, &core.SuggestionSchemaError{Reason: "reasoning is not a string", Raw: raw}
	}
	return resp, nil
}

// strictUnmarshal rejects null, which json.Unmarshal would accept as a no-op.
func strictUnmarshal(raw json.RawMessage, v any) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return errors.New("null value")
	}
	return json.Unmarshal(raw, v)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
