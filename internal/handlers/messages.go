package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"storefront-api/internal/models"
	"storefront-api/internal/services"
)

// MessageHandler serves the contact form inbox
type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// List handles GET /api/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.messages.List())
}

// Unread handles GET /api/messages/unread
func (h *MessageHandler) Unread(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.messages.Unread())
}

// Get handles GET /api/messages/{id}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	message, err := h.messages.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, message)
}

// Create handles POST /api/messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.MessageDraft
	if !decodeJSON(w, r, &draft, false) {
		return
	}
	message, err := h.messages.Create(draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, message)
}

// MarkRead handles PUT /api/messages/{id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	message, err := h.messages.MarkRead(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, message)
}

// Delete handles DELETE /api/messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	message, err := h.messages.Delete(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, message)
}
