package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront-api/internal/events"
	"storefront-api/internal/models"
	"storefront-api/internal/telemetry"
)

// EventsHandler serves the domain event log with optional long polling
type EventsHandler struct {
	eventQueue *events.EventQueue
	logger     *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(eventQueue *events.EventQueue, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{eventQueue: eventQueue, logger: logger}
}

// GetEvents handles GET /api/events?offset=&limit=&wait=
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var offset int64
	if offsetStr := query.Get("offset"); offsetStr != "" {
		parsed, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid offset parameter",
				[]models.ErrorDetail{{Field: "offset", Issue: "must be a non-negative integer"}})
			return
		}
		offset = parsed
	}

	limit := 100
	if parsed, err := strconv.Atoi(query.Get("limit")); err == nil && parsed > 0 && parsed <= 1000 {
		limit = parsed
	}

	waitSeconds := 0
	if parsed, err := strconv.Atoi(query.Get("wait")); err == nil && parsed >= 0 && parsed <= 60 {
		waitSeconds = parsed
	}

	h.logger.Debug("Events request received",
		"offset", offset,
		"limit", limit,
		"wait", waitSeconds,
		"remote_addr", r.RemoteAddr,
	)

	evts, nextOffset, hasMore := h.eventQueue.GetEvents(offset, limit)

	if len(evts) == 0 && waitSeconds > 0 {
		select {
		case <-h.eventQueue.WaitForEvents(offset, time.Duration(waitSeconds)*time.Second):
			evts, nextOffset, hasMore = h.eventQueue.GetEvents(offset, limit)
		case <-r.Context().Done():
			h.logger.Debug("Client disconnected during long polling", "offset", offset)
			return
		}
	}

	telemetry.SetResultCount(r.Context(), len(evts))
	writeJSONResponse(w, http.StatusOK, models.EventsResponse{
		Events:     evts,
		NextOffset: nextOffset,
		HasMore:    hasMore,
		Count:      len(evts),
	})
}
