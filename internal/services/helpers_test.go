package services

import (
	"sync"
	"time"

	"storefront-api/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func flexFloat(v float64) *models.FlexFloat {
	f := models.FlexFloat(v)
	return &f
}

func flexInt(v int) *models.FlexInt {
	n := models.FlexInt(v)
	return &n
}

// recordingPublisher captures published events for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) PublishEvent(eventType, resourceID string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType+":"+resourceID)
}

func (r *recordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seededCatalog() *CatalogService {
	c := NewCatalogService(nil)
	c.Seed([]models.Product{
		{ID: "hoodie", Name: "Hoodie Premium", Category: "Hoodie", Price: 59.99, OriginalPrice: floatPtr(89.99), Stock: 45, OrdersCount: 1},
		{ID: "polo", Name: "Polo Bleu", Category: "Polo", Price: 39.99, Stock: 78},
		{ID: "cap", Name: "Cap", Category: "hoodie", Price: 15, OriginalPrice: floatPtr(15), Stock: 3},
	})
	return c
}
