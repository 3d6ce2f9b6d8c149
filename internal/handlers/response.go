package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"storefront-api/internal/models"
	"storefront-api/internal/services"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	writeJSONResponse(w, statusCode, models.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *services.ValidationError
	var nf *services.NotFoundError

	switch {
	case errors.As(err, &ve):
		slog.Warn("Validation failed", "path", r.URL.Path, "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "validation_error", ve.Message, ve.Details)
	case errors.As(err, &nf):
		slog.Debug("Resource not found", "resource", nf.Resource, "id", nf.ID)
		writeErrorResponse(w, http.StatusNotFound, "not_found", capitalize(nf.Resource)+" not found", nil)
	default:
		slog.Error("Unhandled service error", "path", r.URL.Path, "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

// decodeJSON reads a JSON body into v. An empty body is accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	slog.Warn("Invalid JSON in request", "path", r.URL.Path, "error", err, "remote_addr", r.RemoteAddr)
	writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", []models.ErrorDetail{
		{Field: "body", Issue: err.Error()},
	})
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
