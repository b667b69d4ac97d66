package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fuellog/internal/cache"
	"fuellog/internal/core"
	"fuellog/internal/export"
	ledgermem "fuellog/internal/ledger/memory"
	"fuellog/internal/metrics"
	"fuellog/internal/seed"
	"fuellog/internal/services"
	sheetsmem "fuellog/internal/sheets/memory"
	"fuellog/internal/suggest"
)

type stubGenerator struct {
	reply string
	err   error
	delay time.Duration
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

type testEnv struct {
	srv      *Server
	store    *ledgermem.Store
	exporter *sheetsmem.Exporter
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, gen suggest.Generator, opts ...suggest.Option) *testEnv {
	t.Helper()
	store := ledgermem.New(seed.Default())
	exporter := sheetsmem.NewExporter()
	m := metrics.New()

	if gen == nil {
		gen = suggest.Disabled{}
	}
	svc := Services{
		Entries: services.NewEntryService(store,
			services.WithExporter(exporter),
			services.WithSummaryCache(cache.NewLRUCache[core.Summary](1, time.Minute)),
			services.WithMetrics(m)),
		Reference:   services.NewReferenceService(store, m, nil),
		Suggestions: services.NewSuggestionService(suggest.New(gen, opts...), m),
	}
	srv := NewServer(Config{Addr: ":0", RateLimitPerMinute: 1000, Metrics: m}, svc)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, exporter: exporter, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "203.0.113.10:4000"
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func entryBody(vehicle, date string, qty float64, meter int64) map[string]any {
	return map[string]any{
		"date":          date,
		"slipNumber":    "SLIP-7",
		"vehicleNumber": vehicle,
		"driverName":    "Imran",
		"fuelType":      "Petrol",
		"quantity":      qty,
		"meterReading":  meter,
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := NewServer(Config{Ready: func(context.Context) error { return errors.New("database is locked") }}, Services{})
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestReferenceData(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/vehicles", map[string]string{"number": " ABC-123 ", "model": "Hilux"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[core.Vehicle](t, rec)
	assert.Equal(t, "ABC-123", v.Number)

	env.do(t, http.MethodPost, "/api/vehicles", map[string]string{"number": "XYZ-9", "model": "Corolla"})
	vs := decode[[]core.Vehicle](t, env.do(t, http.MethodGet, "/api/vehicles", nil))
	require.Len(t, vs, 2)
	assert.Equal(t, "XYZ-9", vs[0].Number, "newest first")

	rec = env.do(t, http.MethodPost, "/api/vehicles", map[string]string{"model": "Hilux"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[ErrorBody](t, rec).Fields, "number")

	rec = env.do(t, http.MethodPost, "/api/drivers", map[string]string{"name": "Imran"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ds := decode[[]core.Driver](t, env.do(t, http.MethodGet, "/api/drivers", nil))
	require.Len(t, ds, 1)
	assert.Equal(t, "Imran", ds[0].Name)

	rec = env.do(t, http.MethodPost, "/api/drivers", `{"name": "x", "age": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePrice(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/api/prices/Diesel", map[string]float64{"price": 300.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 300.5, decode[core.FuelPrice](t, rec).Price)

	prices := decode[[]core.FuelPrice](t, env.do(t, http.MethodGet, "/api/prices", nil))
	p, ok := core.PriceFor(prices, core.Diesel)
	require.True(t, ok)
	assert.Equal(t, 300.5, p.Price)

	rec = env.do(t, http.MethodPut, "/api/prices/Kerosene", map[string]float64{"price": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/prices/Petrol", map[string]float64{"price": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PriceUpdates.WithLabelValues(metrics.UnknownFuelType, "miss")))
}

func TestCreateAndQueryEntries(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-01", 25, 150000))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[core.FuelEntry](t, rec)
	assert.Nil(t, first.Average)
	assert.Equal(t, "/api/entries/1", rec.Header().Get("Location"))

	rec = env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-08", 30, 150450))
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[core.FuelEntry](t, rec)
	require.NotNil(t, second.Average)
	assert.InDelta(t, 15.0, *second.Average, 1e-9)
	assert.InDelta(t, 30*279.79, second.Amount, 1e-6)

	env.do(t, http.MethodPost, "/api/entries", entryBody("XYZ-9", "2024-08-01", 10, 500))

	all := decode[[]core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries", nil))
	assert.Len(t, all, 3)

	byVehicle := decode[[]core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries?vehicle=abc", nil))
	assert.Len(t, byVehicle, 2)

	july := decode[[]core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries?from=2024-07-01&to=2024-07-31", nil))
	assert.Len(t, july, 2)

	oneDay := decode[[]core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries?from=2024-07-08", nil))
	require.Len(t, oneDay, 1)
	assert.Equal(t, second.ID, oneDay[0].ID)

	inverted := decode[[]core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries?from=2024-08-01&to=2024-07-01", nil))
	assert.Empty(t, inverted)

	rec = env.do(t, http.MethodGet, "/api/entries?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got := decode[core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries/2", nil))
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/entries/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/entries/abc", nil).Code)
}

func TestCreateEntryValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	body := entryBody("", "2024-07-01", 0.1, 0)
	body["fuelType"] = "Kerosene"
	rec := env.do(t, http.MethodPost, "/api/entries", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fields := decode[ErrorBody](t, rec).Fields
	for _, f := range []string{"vehicleNumber", "fuelType", "quantity", "meterReading"} {
		assert.Contains(t, fields, f)
	}

	rec = env.do(t, http.MethodPost, "/api/entries", `{"date": "not a date"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, decode[[]core.FuelEntry](t, env.do(t, http.MethodGet, "/api/entries", nil)))
}

func TestPreviewEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-01", 25, 150000))

	rec := env.do(t, http.MethodPost, "/api/entries/preview", map[string]any{
		"vehicleNumber": "ABC-123",
		"fuelType":      "Petrol",
		"quantity":      30,
		"meterReading":  150450,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[services.Preview](t, rec)
	require.NotNil(t, p.Average)
	assert.InDelta(t, 15.0, *p.Average, 1e-9)
	assert.Empty(t, p.Errors)

	rec = env.do(t, http.MethodPost, "/api/entries/preview", map[string]any{"vehicleNumber": "ABC-123", "fuelType": "Petrol"})
	require.Equal(t, http.StatusOK, rec.Code)
	p = decode[services.Preview](t, rec)
	assert.Contains(t, p.Errors, "quantity")
	assert.Nil(t, p.Average)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-01", 25, 150000))

	s := decode[core.Summary](t, env.do(t, http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 1, s.EntryCount)

	env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-08", 30, 150450))
	s = decode[core.Summary](t, env.do(t, http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 2, s.EntryCount)
	assert.InDelta(t, 55.0, s.TotalLiters, 1e-9)
	assert.InDelta(t, 15.0, s.OverallAverage, 1e-9)
}

func TestExportEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-01", 25, 150000))
	env.do(t, http.MethodPost, "/api/entries", entryBody("XYZ-9", "2024-07-02", 10, 500))

	rec := env.do(t, http.MethodGet, "/api/entries/export?vehicle=ABC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fuel-history.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ABC-123", rows[1][2])
}

func TestSyncEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/entries", entryBody("ABC-123", "2024-07-01", 25, 150000))
	env.do(t, http.MethodPost, "/api/entries", entryBody("XYZ-9", "2024-07-02", 10, 500))

	rec := env.do(t, http.MethodPost, "/api/entries/sync?vehicle=XYZ", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[syncResponse](t, rec).Synced)
	assert.Equal(t, []int64{2}, env.exporter.IDs())

	env.exporter.Err = errors.New("quota exceeded")
	rec = env.do(t, http.MethodPost, "/api/entries/sync", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSuggestPrice(t *testing.T) {
	validBody := map[string]string{
		"fuelType":          "Petrol",
		"historicalData":    `[{"date":"2024-06-01","price":275.1}]`,
		"currentMarketData": `{"brent":82.4}`,
	}

	t.Run("ok", func(t *testing.T) {
		env := newTestEnv(t, &stubGenerator{reply: `{"suggestedPrice": 281.25, "reasoning": "Crude is up."}`})
		rec := env.do(t, http.MethodPost, "/api/prices/suggest", validBody)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[suggest.Response](t, rec)
		assert.Equal(t, 281.25, resp.SuggestedPrice)

		prices := decode[[]core.FuelPrice](t, env.do(t, http.MethodGet, "/api/prices", nil))
		p, _ := core.PriceFor(prices, core.Petrol)
		assert.Equal(t, 279.79, p.Price, "a suggestion is never applied")
	})

	tests := []struct {
		name   string
		gen    *stubGenerator
		opts   []suggest.Option
		body   map[string]string
		status int
	}{
		{name: "bad historical data", gen: &stubGenerator{}, body: map[string]string{"fuelType": "Petrol", "historicalData": "not json", "currentMarketData": "{}"}, status: http.StatusBadRequest},
		{name: "unknown fuel type", gen: &stubGenerator{}, body: map[string]string{"fuelType": "Kerosene", "historicalData": "[]", "currentMarketData": "{}"}, status: http.StatusBadRequest},
		{name: "schema mismatch", gen: &stubGenerator{reply: `{"price": 1}`}, body: validBody, status: http.StatusBadGateway},
		{name: "provider failure", gen: &stubGenerator{err: errors.New("connection refused")}, body: validBody, status: http.StatusBadGateway},
		{name: "timeout", gen: &stubGenerator{delay: time.Second}, opts: []suggest.Option{suggest.WithTimeout(10 * time.Millisecond)}, body: validBody, status: http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.gen, tt.opts...)
			rec := env.do(t, http.MethodPost, "/api/prices/suggest", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("fallback policy", func(t *testing.T) {
		env := newTestEnv(t, &stubGenerator{err: errors.New("boom")}, suggest.WithPolicy(suggest.PolicyFallback))
		rec := env.do(t, http.MethodPost, "/api/prices/suggest", validBody)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, suggest.FallbackResponse, decode[suggest.Response](t, rec))
	})

	t.Run("disabled provider", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPost, "/api/prices/suggest", validBody)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	store := ledgermem.New(seed.Default())
	m := metrics.New()
	srv := NewServer(Config{RateLimitPerMinute: 1, Metrics: m}, Services{
		Reference: services.NewReferenceService(store, m, nil),
	})
	defer srv.Shutdown(context.Background())

	post := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/drivers", strings.NewReader(`{"name":"Ali"}`))
		req.RemoteAddr = "203.0.113.10:4000"
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitRejects))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/drivers", nil)
	req.RemoteAddr = "203.0.113.10:4000"
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreviewDoesNotConsumeWriteLimit(t *testing.T) {
	store := ledgermem.New(seed.Default())
	m := metrics.New()
	srv := NewServer(Config{RateLimitPerMinute: 1, Metrics: m}, Services{
		Entries:   services.NewEntryService(store, services.WithMetrics(m)),
		Reference: services.NewReferenceService(store, m, nil),
	})
	defer srv.Shutdown(context.Background())

	send := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.RemoteAddr = "203.0.113.20:4000"
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/entries/preview", `{"vehicleNumber":"ABC-123","fuelType":"Petrol","quantity":10}`))
	}
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/drivers", `{"name":"Ali"}`))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/drivers", `{"name":"Sara"}`))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitRejects))
}

func TestMetricsEndpointAndRouteLabels(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/entries/7", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/entries/{id}", http.MethodGet, "4xx")))

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fuellog_http_requests_total")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[ErrorBody](t, rec).Error)

	rec = env.do(t, http.MethodDelete, "/api/vehicles", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
