package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"storefront-api/internal/models"
	"storefront-api/internal/services"
	"storefront-api/internal/telemetry"
)

// topProductsLimit is how many products GET /api/products/metrics returns
const topProductsLimit = 6

// EventOffsetHeader tells catalog mirrors where to resume the event log after a listing
const EventOffsetHeader = "X-Event-Offset"

// OffsetSource reports the next offset the event log will assign
type OffsetSource interface {
	GetCurrentOffset() int64
}

// ProductHandler serves the catalog
type ProductHandler struct {
	catalog *services.CatalogService
	offsets OffsetSource
}

// NewProductHandler creates a product handler. offsets may be nil.
func NewProductHandler(catalog *services.CatalogService, offsets OffsetSource) *ProductHandler {
	return &ProductHandler{catalog: catalog, offsets: offsets}
}

func (h *ProductHandler) writeList(w http.ResponseWriter, r *http.Request, products []models.Product) {
	telemetry.SetResultCount(r.Context(), len(products))
	writeJSONResponse(w, http.StatusOK, products)
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	// Read the offset before listing so replaying from it never skips a change
	if h.offsets != nil {
		w.Header().Set(EventOffsetHeader, strconv.FormatInt(h.offsets.GetCurrentOffset(), 10))
	}
	h.writeList(w, r, h.catalog.List())
}

// Metrics handles GET /api/products/metrics - best performing products
func (h *ProductHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.catalog.RankedByPerformance(topProductsLimit))
}

// Sales handles GET /api/products/sales
func (h *ProductHandler) Sales(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.catalog.ListOnSale())
}

// ByCategory handles GET /api/products/category/{category}
func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, h.catalog.ListByCategory(mux.Vars(r)["category"]))
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.ProductDraft
	if !decodeJSON(w, r, &draft, false) {
		return
	}

	product, err := h.catalog.Create(draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.ProductPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}

	product, err := h.catalog.Update(mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Delete(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, product)
}

// AddFavorite handles POST /api/products/{id}/favorite
func (h *ProductHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, true)
}

// RemoveFavorite handles DELETE /api/products/{id}/favorite
func (h *ProductHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, false)
}

func (h *ProductHandler) toggleFavorite(w http.ResponseWriter, r *http.Request, add bool) {
	var req models.FavoriteRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.UserID == "" {
		slog.Debug("Anonymous favorite toggle", "product_id", mux.Vars(r)["id"], "remote_addr", r.RemoteAddr)
	}

	product, err := h.catalog.ToggleFavorite(mux.Vars(r)["id"], req.UserID, add)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, product)
}

// UserFavorites handles GET /api/products/user/{userId}/favorites
func (h *ProductHandler) UserFavorites(w http.ResponseWriter, r *http.Request) {
	ids := h.catalog.FavoritesOf(mux.Vars(r)["userId"])
	telemetry.SetResultCount(r.Context(), len(ids))
	writeJSONResponse(w, http.StatusOK, ids)
}
