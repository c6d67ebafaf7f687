// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: strict JSON bodies, month query parameters and ids.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

const maxBodyBytes = 1 << 20

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseMonthQuery reads ?month=YYYY-MM. An absent month means the month
// containing now; a malformed one is a validation error.
func ParseMonthQuery(r *http.Request, now time.Time) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.CurrentMonth(now), nil
	}
	return core.ParseMonth(v)
}

// RequireMonthQuery is ParseMonthQuery without the default.
func RequireMonthQuery(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.Month{}, core.NewValidationError("month", "month is required")
	}
	return core.ParseMonth(v)
}

// RequireID reads the id query parameter.
func RequireID(r *http.Request) (string, error) {
	id := sanitizeInput(r.URL.Query().Get("id"))
	if id == "" {
		return "", core.NewValidationError("id", "id is required")
	}
	return id, nil
}

// DecodeJSON decodes a single JSON object into dst, rejecting unknown fields
// and bodies larger than 1 MiB.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewValidationError("", "request body is empty")
		case errors.As(err, &maxErr):
			return core.NewValidationError("", "request body too large")
		default:
			return core.NewValidationError("", fmt.Sprintf("malformed JSON: %v", err))
		}
	}
	if dec.More() {
		return core.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

// userID returns the authenticated caller.
func userID(r *http.Request) (string, error) {
	id, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", &core.AuthenticationError{Reason: "missing user identity"}
	}
	return id, nil
}
