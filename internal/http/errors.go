package http

import (
	"context"
	"errors"
	"net/http"

	"fuellog/internal/core"
	applog "fuellog/internal/log"
	"fuellog/internal/sheets"
)

// errorResponse maps a service error onto a status code and body.
// validationStatus is the status used for *core.ValidationError; the entry
// endpoints answer 422 and the suggestion endpoint 400.
func errorResponse(err error, validationStatus int) *ResponseBuilder {
	var (
		reqErr     *RequestError
		valErr     *core.ValidationError
		formatErr  *core.DataFormatError
		schemaErr  *core.SuggestionSchemaError
		timeoutErr *core.SuggestionTimeoutError
	)
	switch {
	case errors.As(err, &reqErr):
		return BadRequestError(reqErr.Msg)
	case errors.As(err, &valErr):
		return NewResponse().
			Status(validationStatus).
			JSON(ErrorBody{Error: "validation failed", Fields: valErr.Fields})
	case errors.As(err, &formatErr):
		return NewResponse().
			Status(http.StatusBadRequest).
			JSON(ErrorBody{Error: formatErr.Error(), Fields: map[string]string{formatErr.Field: "must be valid JSON"}})
	case errors.As(err, &schemaErr):
		return ErrorResponse(http.StatusBadGateway, schemaErr.Error())
	case errors.As(err, &timeoutErr):
		return ErrorResponse(http.StatusGatewayTimeout, timeoutErr.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, core.ErrSuggestionsDisabled), errors.Is(err, sheets.ErrNotConfigured):
		return ErrorResponse(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "request timed out")
	default:
		return InternalServerError()
	}
}

// writeError logs server side failures and writes the mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string, validationStatus int) {
	resp := errorResponse(err, validationStatus)
	if resp.statusCode >= http.StatusInternalServerError {
		s.log.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, nil)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op,
			applog.FieldError, err.Error(),
			applog.FieldStatusCode, resp.statusCode)
	}
	resp.Write(w)
}
