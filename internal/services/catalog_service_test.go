package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/models"
)

// TestCatalogService_Queries tests category, sale and lookup filters
func TestCatalogService_Queries(t *testing.T) {
	catalog := seededCatalog()

	assert.Len(t, catalog.List(), 3)

	byCategory := catalog.ListByCategory("HOODIE")
	require.Len(t, byCategory, 2, "Category match should ignore case")
	assert.Equal(t, "hoodie", byCategory[0].ID)
	assert.Equal(t, "cap", byCategory[1].ID)

	onSale := catalog.ListOnSale()
	require.Len(t, onSale, 1, "Equal original price is not a sale")
	assert.Equal(t, "hoodie", onSale[0].ID)

	_, err := catalog.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "product", nf.Resource)
}

// TestCatalogService_ReturnsCopies tests that callers cannot mutate stored products
func TestCatalogService_ReturnsCopies(t *testing.T) {
	catalog := seededCatalog()
	_, err := catalog.ToggleFavorite("polo", "u1", true)
	require.NoError(t, err)

	p, _ := catalog.Get("polo")
	p.FavoritedBy[0] = "intruder"
	p.Stock = -1

	fresh, _ := catalog.Get("polo")
	assert.Equal(t, []string{"u1"}, fresh.FavoritedBy)
	assert.Equal(t, 78, fresh.Stock)
}

// TestCatalogService_RankedByPerformance tests ordering, tie-break and limit
func TestCatalogService_RankedByPerformance(t *testing.T) {
	catalog := NewCatalogService(nil)
	var products []models.Product
	for i, tc := range []struct {
		id        string
		orders    int
		favorites int
	}{
		{"a", 1, 0}, {"b", 5, 0}, {"c", 5, 3}, {"d", 0, 9}, {"e", 2, 0},
		{"f", 2, 0}, {"g", 7, 1}, {"h", 0, 0},
	} {
		products = append(products, models.Product{
			ID: tc.id, Name: tc.id, Category: "x", Price: float64(i + 1),
			Stock: 1, OrdersCount: tc.orders, Favorites: tc.favorites,
		})
	}
	catalog.Seed(products)

	ranked := catalog.RankedByPerformance(6)

	require.Len(t, ranked, 6)
	ids := make([]string, 0, len(ranked))
	for _, p := range ranked {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"g", "c", "b", "e", "f", "a"}, ids)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].OrdersCount, ranked[i].OrdersCount)
	}

	assert.Len(t, catalog.RankedByPerformance(100), 8)
}

// TestCatalogService_Create tests draft validation and defaults
func TestCatalogService_Create(t *testing.T) {
	events := &recordingPublisher{}
	catalog := NewCatalogService(events)

	created, err := catalog.Create(models.ProductDraft{
		Name:     "Sweat",
		Category: "Hoodie",
		Price:    flexFloat(49.5),
		Stock:    flexInt(10),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.DefaultProductImage, created.Image)
	assert.Equal(t, 0, created.Favorites)
	assert.Empty(t, created.FavoritedBy)
	assert.Equal(t, 0, created.OrdersCount)
	assert.Equal(t, []string{models.EventProductCreated + ":" + created.ID}, events.Types())

	tests := []struct {
		name  string
		draft models.ProductDraft
		field string
	}{
		{"missing name", models.ProductDraft{Category: "c", Price: flexFloat(1), Stock: flexInt(1)}, "name"},
		{"blank category", models.ProductDraft{Name: "n", Category: "  ", Price: flexFloat(1), Stock: flexInt(1)}, "category"},
		{"missing price", models.ProductDraft{Name: "n", Category: "c", Stock: flexInt(1)}, "price"},
		{"zero stock", models.ProductDraft{Name: "n", Category: "c", Price: flexFloat(1), Stock: flexInt(0)}, "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Create(tt.draft)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotEmpty(t, ve.Details)
			assert.Equal(t, tt.field, ve.Details[0].Field)
		})
	}
	assert.Len(t, catalog.List(), 1, "Rejected drafts must not be stored")
}

// TestCatalogService_UpdateZeroStock tests that an explicit zero stock is applied
func TestCatalogService_UpdateZeroStock(t *testing.T) {
	catalog := seededCatalog()

	updated, err := catalog.Update("polo", models.ProductPatch{
		Name:  strPtr(""),
		Stock: flexInt(0),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, "Polo Bleu", updated.Name, "Empty name should be left untouched")
	assert.Equal(t, 39.99, updated.Price)
}

// TestCatalogService_UpdateErrors tests not-found and negative values
func TestCatalogService_UpdateErrors(t *testing.T) {
	catalog := seededCatalog()

	_, err := catalog.Update("missing", models.ProductPatch{Stock: flexInt(-1)})
	assert.ErrorIs(t, err, ErrNotFound, "Unknown id is reported before validation")

	_, err = catalog.Update("polo", models.ProductPatch{Stock: flexInt(-1)})
	assert.True(t, IsValidation(err))

	p, _ := catalog.Get("polo")
	assert.Equal(t, 78, p.Stock)
}

// TestCatalogService_SeedNormalizesFavoritedBy tests that a recorded favoritedBy set decides the count
func TestCatalogService_SeedNormalizesFavoritedBy(t *testing.T) {
	catalog := NewCatalogService(nil)
	catalog.Seed([]models.Product{
		{ID: "inflated", Name: "Inflated", Favorites: 3, FavoritedBy: []string{}},
		{ID: "dupes", Name: "Dupes", FavoritedBy: []string{"u1", "u1", "u2"}},
		{ID: "anonymous", Name: "Anonymous", Favorites: 4},
	})

	inflated, err := catalog.Get("inflated")
	require.NoError(t, err)
	assert.Equal(t, 0, inflated.Favorites)
	assert.Empty(t, inflated.FavoritedBy)

	dupes, err := catalog.Get("dupes")
	require.NoError(t, err)
	assert.Equal(t, 2, dupes.Favorites)
	assert.Equal(t, []string{"u1", "u2"}, dupes.FavoritedBy)

	anonymous, err := catalog.Get("anonymous")
	require.NoError(t, err)
	assert.Equal(t, 4, anonymous.Favorites)
	assert.NotNil(t, anonymous.FavoritedBy)

	p, err := catalog.ToggleFavorite("dupes", "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Favorites)
	assert.Equal(t, []string{"u2"}, p.FavoritedBy)
}

// TestCatalogService_FavoritesInvariant tests favorites == |favoritedBy| for user toggles
func TestCatalogService_FavoritesInvariant(t *testing.T) {
	catalog := seededCatalog()

	steps := []struct {
		user string
		add  bool
	}{
		{"u1", true}, {"u1", true}, {"u2", true}, {"u3", false}, {"u1", false}, {"u1", false}, {"u3", true},
	}
	for _, step := range steps {
		p, err := catalog.ToggleFavorite("hoodie", step.user, step.add)
		require.NoError(t, err)
		assert.Equal(t, len(p.FavoritedBy), p.Favorites)
	}

	p, _ := catalog.Get("hoodie")
	assert.ElementsMatch(t, []string{"u2", "u3"}, p.FavoritedBy)
	assert.ElementsMatch(t, []string{"hoodie"}, catalog.FavoritesOf("u2"))
	assert.Empty(t, catalog.FavoritesOf("u1"))
}

// TestCatalogService_TogglePairRestoresState tests that add then remove is a no-op overall
func TestCatalogService_TogglePairRestoresState(t *testing.T) {
	catalog := seededCatalog()
	before, _ := catalog.Get("polo")

	_, err := catalog.ToggleFavorite("polo", "u1", true)
	require.NoError(t, err)
	after, err := catalog.ToggleFavorite("polo", "u1", false)
	require.NoError(t, err)

	assert.Equal(t, before.Favorites, after.Favorites)
	assert.Equal(t, before.FavoritedBy, after.FavoritedBy)
}

// TestCatalogService_AnonymousToggle tests the count-only path and its floor at zero
func TestCatalogService_AnonymousToggle(t *testing.T) {
	catalog := seededCatalog()

	p, _ := catalog.ToggleFavorite("polo", "", false)
	assert.Equal(t, 0, p.Favorites)

	p, _ = catalog.ToggleFavorite("polo", "", true)
	assert.Equal(t, 1, p.Favorites)
	assert.Empty(t, p.FavoritedBy)

	_, err := catalog.ToggleFavorite("missing", "u1", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestCatalogService_ApplyOrder tests stock floor and unknown products
func TestCatalogService_ApplyOrder(t *testing.T) {
	catalog := seededCatalog()

	applied := catalog.ApplyOrder([]models.OrderItem{
		{ProductID: "cap", Quantity: 10},
		{ProductID: "ghost", Quantity: 1},
		{ProductID: "polo", Quantity: 2},
	})

	assert.Equal(t, 2, applied)
	capProduct, _ := catalog.Get("cap")
	assert.Equal(t, 0, capProduct.Stock, "Stock is floored at zero")
	assert.Equal(t, 10, capProduct.OrdersCount)
	polo, _ := catalog.Get("polo")
	assert.Equal(t, 76, polo.Stock)
	assert.Equal(t, 2, polo.OrdersCount)
}

// TestCatalogService_Delete tests removal
func TestCatalogService_Delete(t *testing.T) {
	catalog := seededCatalog()

	deleted, err := catalog.Delete("polo")
	require.NoError(t, err)
	assert.Equal(t, "polo", deleted.ID)
	assert.Len(t, catalog.List(), 2)

	_, err = catalog.Delete("polo")
	assert.ErrorIs(t, err, ErrNotFound)
}
