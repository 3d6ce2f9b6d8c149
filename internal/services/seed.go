package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"storefront-api/internal/models"
)

// LoadSeedFile reads catalog seed data from a JSON file
func LoadSeedFile(path string) (*models.SeedData, error) {
	slog.Debug("Loading seed data", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read seed data file", "path", path, "error", err)
		return nil, fmt.Errorf("error reading seed data file: %w", err)
	}

	seed := &models.SeedData{}
	if err := json.Unmarshal(data, seed); err != nil {
		slog.Error("Failed to parse seed data JSON", "path", path, "error", err)
		return nil, fmt.Errorf("error parsing seed data JSON: %w", err)
	}

	slog.Info("Seed data loaded successfully",
		"path", path,
		"products_count", len(seed.Products),
		"orders_count", len(seed.Orders),
		"promotions_count", len(seed.Promotions),
		"messages_count", len(seed.Messages))

	return seed, nil
}

// Stores groups the server-side stores so they can be built and seeded together
type Stores struct {
	Catalog    *CatalogService
	Orders     *OrderService
	Promotions *PromotionService
	Messages   *MessageService
}

// Seed loads every collection from seed. Order seeding does not touch stock.
func (st *Stores) Seed(seed *models.SeedData) {
	if seed == nil {
		return
	}
	st.Catalog.Seed(seed.Products)
	st.Orders.Seed(seed.Orders)
	st.Promotions.Seed(seed.Promotions)
	st.Messages.Seed(seed.Messages)
}
