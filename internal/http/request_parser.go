// This file implements request body decoding and query parsing shared by
// the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fuellog/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestError is a malformed request that maps to 400.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

func badRequestf(format string, args ...any) error {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// DecodeJSON reads one JSON object from the body into v. Unknown fields,
// trailing data and bodies over maxBodyBytes are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			maxErr    *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return badRequestf("request body is required")
		case errors.As(err, &syntaxErr):
			return badRequestf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return badRequestf("field %q must be %s", typeErr.Field, typeErr.Type)
		case errors.As(err, &maxErr):
			return badRequestf("request body must not exceed %d bytes", maxErr.Limit)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return badRequestf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return badRequestf("invalid request body: %v", err)
		}
	}
	if dec.More() {
		return badRequestf("request body must contain a single JSON object")
	}
	return nil
}

// ParseEntryFilter reads vehicle, from and to (YYYY-MM-DD) from the query.
func ParseEntryFilter(query url.Values) (core.EntryFilter, error) {
	f := core.EntryFilter{Vehicle: sanitizeInput(query.Get("vehicle"))}
	for name, dst := range map[string]*core.Date{"from": &f.From, "to": &f.To} {
		v := strings.TrimSpace(query.Get(name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.EntryFilter{}, badRequestf("invalid %s date %q: expected YYYY-MM-DD", name, v)
		}
		*dst = d
	}
	return f, nil
}

// parseIDParam reads a positive integer URL parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequestf("invalid %s %q", name, raw)
	}
	return id, nil
}

// sanitizeInput trims whitespace and removes control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func sanitizeEntryInput(in core.EntryInput) core.EntryInput {
	in.SlipNumber = sanitizeInput(in.SlipNumber)
	in.VehicleNumber = sanitizeInput(in.VehicleNumber)
	in.DriverName = sanitizeInput(in.DriverName)
	in.FuelType = core.FuelType(sanitizeInput(string(in.FuelType)))
	return in
}
