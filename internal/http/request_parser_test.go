package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuellog/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"Ali"}`},
		{name: "empty", body: ``, wantErr: "request body is required"},
		{name: "syntax", body: `{"name":`, wantErr: "invalid request body"},
		{name: "bad syntax", body: `{"name" "x"}`, wantErr: "malformed JSON"},
		{name: "wrong type", body: `{"name":5}`, wantErr: `field "name" must be string`},
		{name: "unknown field", body: `{"nam":"x"}`, wantErr: `unknown field "nam"`},
		{name: "trailing object", body: `{"name":"a"}{"name":"b"}`, wantErr: "single JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Ali", p.Name)
				return
			}
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeJSONBodyLimit(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var p struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(httptest.NewRecorder(), r, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")
}

func TestParseEntryFilter(t *testing.T) {
	f, err := ParseEntryFilter(url.Values{"vehicle": {" abc "}, "from": {"2024-07-01"}, "to": {"2024-07-31"}})
	require.NoError(t, err)
	assert.Equal(t, "abc", f.Vehicle)
	assert.Equal(t, core.NewDate(2024, 7, 1), f.From)
	assert.Equal(t, core.NewDate(2024, 7, 31), f.To)

	f, err = ParseEntryFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, core.EntryFilter{}, f)

	_, err = ParseEntryFilter(url.Values{"from": {"01/07/2024"}})
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Contains(t, err.Error(), "from")
}

func TestParseIDParam(t *testing.T) {
	withID := func(v string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", v)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := parseIDParam(withID("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "x"} {
		_, err := parseIDParam(withID(bad), "id")
		assert.Error(t, err, bad)
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "ABC-123", sanitizeInput("  ABC-\x00123\x07 "))
	assert.Equal(t, "a\tb", sanitizeInput("a\tb"))

	in := sanitizeEntryInput(core.EntryInput{SlipNumber: " S1\x01", VehicleNumber: "V\x02", DriverName: " Ali ", FuelType: " Petrol"})
	assert.Equal(t, "S1", in.SlipNumber)
	assert.Equal(t, "V", in.VehicleNumber)
	assert.Equal(t, "Ali", in.DriverName)
	assert.Equal(t, core.Petrol, in.FuelType)
}
