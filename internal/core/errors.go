package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownFuelType     = errors.New("unknown fuel type")
	ErrNotFound            = errors.New("not found")
	ErrSuggestionsDisabled = errors.New("price suggestions are disabled")
)

// ValidationError maps input field names to human readable messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// DataFormatError reports a suggestion input field that is not well-formed JSON.
type DataFormatError struct {
	Field string
	Err   error
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("%s is not valid JSON: %v", e.Field, e.Err)
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// SuggestionSchemaError reports a provider reply that does not match
// {suggestedPrice: number, reasoning: string}.
type SuggestionSchemaError struct {
	Reason string
	Raw    string
}

func (e *SuggestionSchemaError) Error() string {
	return "suggestion response does not match schema: " + e.Reason
}

type SuggestionTimeoutError struct {
	After time.Duration
}

func (e *SuggestionTimeoutError) Error() string {
	return fmt.Sprintf("suggestion timed out after %s", e.After)
}
