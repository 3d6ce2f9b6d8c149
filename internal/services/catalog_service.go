package services

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-api/internal/models"
)

// CatalogService owns the product collection
type CatalogService struct {
	mu       sync.RWMutex
	products []*models.Product
	events   EventPublisher
	now      func() time.Time
}

// NewCatalogService creates an empty catalog. events may be nil.
func NewCatalogService(events EventPublisher) *CatalogService {
	return &CatalogService{
		products: make([]*models.Product, 0),
		events:   publisherOrNoop(events),
		now:      time.Now,
	}
}

// Seed replaces the catalog contents, normalizing favorites to the favoritedBy set
func (s *CatalogService) Seed(products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make([]*models.Product, 0, len(products))
	for _, p := range products {
		p := p.Clone()
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.FavoritedBy == nil {
			// no membership recorded: the count stands for anonymous likes
			p.FavoritedBy = []string{}
		} else {
			p.FavoritedBy = uniqueUsers(p.FavoritedBy)
			p.Favorites = len(p.FavoritedBy)
		}
		if p.Image == "" {
			p.Image = models.DefaultProductImage
		}
		s.products = append(s.products, &p)
	}
	slog.Info("Catalog seeded", "products_count", len(s.products))
}

func uniqueUsers(users []string) []string {
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// List returns all products in insertion order
func (s *CatalogService) List() []models.Product {
	return s.filter(func(models.Product) bool { return true })
}

// ListByCategory returns products whose category matches case-insensitively
func (s *CatalogService) ListByCategory(category string) []models.Product {
	return s.filter(func(p models.Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// ListOnSale returns products priced below their original price
func (s *CatalogService) ListOnSale() []models.Product {
	return s.filter(models.Product.OnSale)
}

// RankedByPerformance returns the top products by units ordered, then by favorites
func (s *CatalogService) RankedByPerformance(limit int) []models.Product {
	ranked := s.List()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].OrdersCount != ranked[j].OrdersCount {
			return ranked[i].OrdersCount > ranked[j].OrdersCount
		}
		return ranked[i].Favorites > ranked[j].Favorites
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (s *CatalogService) filter(keep func(models.Product) bool) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(*p) {
			result = append(result, p.Clone())
		}
	}
	return result
}

// Get retrieves a product by its ID
func (s *CatalogService) Get(id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, _ := s.find(id)
	if p == nil {
		slog.Debug("Product not found", "product_id", id)
		return models.Product{}, notFound("product", id)
	}
	return p.Clone(), nil
}

// find must be called with the lock held
func (s *CatalogService) find(id string) (*models.Product, int) {
	for i, p := range s.products {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// Create adds a product from an admin draft
func (s *CatalogService) Create(draft models.ProductDraft) (models.Product, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Category = strings.TrimSpace(draft.Category)
	if err := validateDraft("invalid product", draft); err != nil {
		slog.Warn("Rejected product creation", "error", err)
		return models.Product{}, err
	}

	p := models.Product{
		ID:            uuid.NewString(),
		Name:          draft.Name,
		Category:      draft.Category,
		Price:         float64(*draft.Price),
		OriginalPrice: draft.OriginalPrice.FloatPtr(),
		Stock:         int(*draft.Stock),
		Image:         draft.Image,
		Favorites:     0,
		FavoritedBy:   []string{},
		OrdersCount:   0,
		CreatedAt:     s.now().UTC(),
	}
	if p.Image == "" {
		p.Image = models.DefaultProductImage
	}

	s.mu.Lock()
	s.products = append(s.products, &p)
	created := p.Clone()
	s.mu.Unlock()

	slog.Info("Product created", "product_id", created.ID, "name", created.Name, "category", created.Category)
	s.events.PublishEvent(models.EventProductCreated, created.ID, created)
	return created, nil
}

// Update merges the fields present in patch. Empty strings count as absent, zero stock does not.
func (s *CatalogService) Update(id string, patch models.ProductPatch) (models.Product, error) {
	s.mu.Lock()
	p, _ := s.find(id)
	if p == nil {
		s.mu.Unlock()
		return models.Product{}, notFound("product", id)
	}

	var details []models.ErrorDetail
	if patch.Price != nil && *patch.Price < 0 {
		details = append(details, models.ErrorDetail{Field: "price", Issue: "must be at least 0"})
	}
	if patch.OriginalPrice != nil && *patch.OriginalPrice < 0 {
		details = append(details, models.ErrorDetail{Field: "originalPrice", Issue: "must be at least 0"})
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		details = append(details, models.ErrorDetail{Field: "stock", Issue: "must be at least 0"})
	}
	if len(details) > 0 {
		s.mu.Unlock()
		return models.Product{}, invalid("invalid product update", details...)
	}

	if v := patch.Name; v != nil && *v != "" {
		p.Name = *v
	}
	if v := patch.Category; v != nil && *v != "" {
		p.Category = *v
	}
	if v := patch.Image; v != nil && *v != "" {
		p.Image = *v
	}
	if patch.Price != nil {
		p.Price = float64(*patch.Price)
	}
	if patch.OriginalPrice != nil {
		p.OriginalPrice = patch.OriginalPrice.FloatPtr()
	}
	if patch.Stock != nil {
		p.Stock = int(*patch.Stock)
	}
	updated := p.Clone()
	s.mu.Unlock()

	slog.Info("Product updated", "product_id", id, "stock", updated.Stock, "price", updated.Price)
	s.events.PublishEvent(models.EventProductUpdated, id, updated)
	return updated, nil
}

// ToggleFavorite adds or removes a favorite. With a user id the operation is
// idempotent per user; without one only the counter moves.
func (s *CatalogService) ToggleFavorite(id, userID string, add bool) (models.Product, error) {
	s.mu.Lock()
	p, _ := s.find(id)
	if p == nil {
		s.mu.Unlock()
		return models.Product{}, notFound("product", id)
	}

	changed := false
	switch {
	case userID == "" && add:
		p.Favorites++
		changed = true
	case userID == "":
		if p.Favorites > 0 {
			p.Favorites--
			changed = true
		}
	case add && !p.IsFavoritedBy(userID):
		p.FavoritedBy = append(p.FavoritedBy, userID)
		p.Favorites++
		changed = true
	case !add && p.IsFavoritedBy(userID):
		kept := p.FavoritedBy[:0]
		for _, uid := range p.FavoritedBy {
			if uid != userID {
				kept = append(kept, uid)
			}
		}
		p.FavoritedBy = kept
		if p.Favorites > 0 {
			p.Favorites--
		}
		changed = true
	}
	result := p.Clone()
	s.mu.Unlock()

	slog.Debug("Favorite toggled",
		"product_id", id,
		"user_id", userID,
		"add", add,
		"changed", changed,
		"favorites", result.Favorites)
	if changed {
		s.events.PublishEvent(models.EventFavoriteToggled, id, result)
	}
	return result, nil
}

// FavoritesOf returns the ids of products favorited by userID
func (s *CatalogService) FavoritesOf(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for _, p := range s.products {
		if p.IsFavoritedBy(userID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Delete removes a product and returns it
func (s *CatalogService) Delete(id string) (models.Product, error) {
	s.mu.Lock()
	p, idx := s.find(id)
	if p == nil {
		s.mu.Unlock()
		return models.Product{}, notFound("product", id)
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)
	s.mu.Unlock()

	slog.Info("Product deleted", "product_id", id)
	s.events.PublishEvent(models.EventProductDeleted, id, nil)
	return *p, nil
}

// ApplyOrder decrements stock (floored at 0) and bumps ordersCount for each item.
// Items referencing unknown products are skipped. Returns how many items were applied.
func (s *CatalogService) ApplyOrder(items []models.OrderItem) int {
	s.mu.Lock()
	applied := 0
	touched := make([]models.Product, 0, len(items))
	for _, item := range items {
		p, _ := s.find(item.ProductID)
		if p == nil {
			slog.Warn("Ordered product not in catalog, skipping stock update", "product_id", item.ProductID)
			continue
		}
		p.Stock = max(0, p.Stock-item.Quantity)
		p.OrdersCount += item.Quantity
		applied++
		touched = append(touched, p.Clone())
	}
	s.mu.Unlock()

	for _, p := range touched {
		s.events.PublishEvent(models.EventProductUpdated, p.ID, p)
	}
	return applied
}
