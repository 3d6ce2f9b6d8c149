package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"storefront-api/internal/models"
	"storefront-api/internal/services"
)

// PromotionHandler serves discount codes
type PromotionHandler struct {
	promotions *services.PromotionService
	now        func() time.Time
}

func NewPromotionHandler(promotions *services.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions, now: time.Now}
}

// List handles GET /api/promotions
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.promotions.List())
}

// Active handles GET /api/promotions/active
func (h *PromotionHandler) Active(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.promotions.Active(h.now()))
}

// ByCode handles GET /api/promotions/code/{code}
func (h *PromotionHandler) ByCode(w http.ResponseWriter, r *http.Request) {
	promotion, err := h.promotions.GetByCode(mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, promotion)
}

// Create handles POST /api/promotions
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.PromotionDraft
	if !decodeJSON(w, r, &draft, false) {
		return
	}
	promotion, err := h.promotions.Create(draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, promotion)
}

// Update handles PUT /api/promotions/{id}
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.PromotionPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	promotion, err := h.promotions.Update(mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, promotion)
}

// Delete handles DELETE /api/promotions/{id}
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	promotion, err := h.promotions.Delete(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, promotion)
}
