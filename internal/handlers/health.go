package handlers

import (
	"net/http"

	"storefront-api/internal/models"
)

// HealthHandler handles health check requests
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:  "OK",
		Message: "Storefront API is running",
	})
}

// NotFound answers requests that match no route
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, http.StatusNotFound, "not_found", "Route not found", nil)
}

// MethodNotAllowed answers requests whose path matches but method does not
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
}
