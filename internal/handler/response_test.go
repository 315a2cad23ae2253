package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitness-hub/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("", "Please fill in all fields"), http.StatusBadRequest, "validation_error", "Please fill in all fields"},
		{"unauthenticated", apperror.Unauthenticated("Please log in to continue."), http.StatusUnauthorized, "unauthenticated", "Please log in to continue."},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden", "not yours"},
		{"not found", apperror.NotFound("profile", "u-1"), http.StatusNotFound, "not_found", "profile not found with id u-1"},
		{"conflict", apperror.Conflict("user", "a@b.c"), http.StatusConflict, "conflict", "user conflict with id a@b.c"},
		{"identity", apperror.Identity(errors.New("dial tcp: refused"), "Login failed. Please try again."), http.StatusUnprocessableEntity, "identity_error", "Login failed. Please try again."},
		{"record store", apperror.RecordStore(errors.New("timeout"), "Failed to send message. Please try again."), http.StatusBadGateway, "record_store_error", "Failed to send message. Please try again."},
		{"wrapped", fmt.Errorf("handler: %w", apperror.Forbidden("no")), http.StatusForbidden, "forbidden", "no"},
		{"plain error", errors.New("database is locked"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}
