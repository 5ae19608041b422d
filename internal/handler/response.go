package handler

// RESPONSE HELPERS:
// Handlers only ever call writeJSON(w, status, v) or writeError(w, err), so
// every response sets its Content-Type and status the same way.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "unsupported_language", "message": "Unsupported language: \"ruby\""}
//
// Callers can switch on "error" without caring whether it was a 400 or a 500.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/coderun/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
// Having a struct ensures consistent JSON shape across all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "validation_error")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, for validation errors
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must go out before the body; once Encode writes, they are frozen.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent, so we can only log it.
			// This is rare (usually means the data has an unencodable type like a channel).
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation          → 400 validation_error
//	ErrUnsupportedLanguage → 400 unsupported_language
//	ErrSystemFault         → 500 execution_error
//	context canceled       → nothing written, the client is gone
//	anything else          → 500 internal_error
//
// The executor never knows about HTTP; the CLI maps the same sentinels to
// exit codes instead.
//
// errors.Is() walks the whole chain, so a fault wrapped as
// fmt.Errorf("...: %w", apperror.SystemFault(...)) still matches.
func writeError(w http.ResponseWriter, err error) {
	// The client is gone; there is nobody to answer.
	if errors.Is(err, context.Canceled) {
		slog.Debug("request canceled by client", slog.String("error", err.Error()))
		return
	}

	// Try to extract our AppError for the human-readable message
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnsupportedLanguage):
			status = http.StatusBadRequest // 400
			errorType = "unsupported_language"
		case errors.Is(err, apperror.ErrSystemFault):
			status = http.StatusInternalServerError // 500
			errorType = "execution_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// Unknown error: return a generic 500
	// NEVER expose internal error details to the client in production!
	// The raw error message might contain file paths or toolchain output.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
