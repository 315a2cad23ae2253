package handler

// RESPONSE HELPERS:
// Every JSON answer from the site goes through writeJSON, and every failed
// operation through writeError, so the browser script always sees the same
// error shape:
//   {"error": "identity_error", "message": "Invalid login credentials"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/fitness-hub/internal/apperror"
)

// ErrorResponse is the error body returned by the JSON endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // apperror.Kind, e.g. "validation_error"
	Message string `json:"message"` // what the visitor is shown
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error's sentinel to an HTTP status.
//
// ERROR MAPPING:
// The controller and backends only know apperror sentinels. Translating them
// to HTTP happens here so nothing below the handler layer imports net/http
// status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest // 400
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized // 401
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden // 403
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict // 409
	case errors.Is(err, apperror.ErrIdentity):
		// Wrong credentials and duplicate sign-ups arrive here too, so this
		// is a client error rather than a gateway failure.
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, apperror.ErrRecordStore):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to a status code and an ErrorResponse.
//
// Only AppError messages reach the client. Anything else is reported as a
// generic internal error: raw messages can carry SQL or upstream URLs.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, statusFor(err), ErrorResponse{
			Error:   apperror.Kind(err),
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
