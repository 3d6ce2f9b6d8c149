package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/cache"
	"storefront-api/internal/events"
	"storefront-api/internal/handlers"
	"storefront-api/internal/logging"
	"storefront-api/internal/models"
	"storefront-api/internal/services"
)

func newTestAPI(t *testing.T) (*StorefrontClient, *services.CatalogService) {
	t.Helper()
	idem := cache.NewTTLCache[models.Order](time.Minute, time.Minute)
	t.Cleanup(idem.Stop)

	eventQueue := events.NewEventQueue(events.EventQueueConfig{MaxEvents: 100, Logger: logging.Discard()})
	t.Cleanup(eventQueue.Close)

	catalog := services.NewCatalogService(eventQueue)
	catalog.Seed([]models.Product{{ID: "polo", Name: "Polo Bleu", Category: "Polo", Price: 20, Stock: 5}})
	promotions := services.NewPromotionService()
	orders := services.NewOrderService(catalog, promotions, eventQueue, idem)

	server := httptest.NewServer(handlers.NewRouter(handlers.Dependencies{
		Catalog:    catalog,
		Orders:     orders,
		Promotions: promotions,
		Messages:   services.NewMessageService(),
		Events:     eventQueue,
		Logger:     logging.Discard(),
	}))
	t.Cleanup(server.Close)

	return NewStorefrontClient(server.URL+"/", 5*time.Second), catalog
}

func orderDraft(userID string) models.OrderDraft {
	return models.OrderDraft{
		UserID:      userID,
		Items:       []models.OrderItem{{ProductID: "polo", Name: "Polo Bleu", Quantity: 1, Price: 20, Size: "M", Color: "Bleu"}},
		TotalAmount: 20,
	}
}

func TestHealthCheck(t *testing.T) {
	c, _ := newTestAPI(t)

	health, err := c.HealthCheck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "OK", health.Status)
}

func TestProducts(t *testing.T) {
	c, _ := newTestAPI(t)
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)

	product, err := c.GetProduct(ctx, "polo")
	require.NoError(t, err)
	assert.Equal(t, "Polo Bleu", product.Name)

	_, err = c.GetProduct(ctx, "missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Product not found")
}

func TestEventFeed(t *testing.T) {
	c, _ := newTestAPI(t)
	ctx := context.Background()

	products, offset, err := c.ListProductsWithOffset(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(0), offset)

	_, err = c.ToggleFavorite(ctx, "polo", "u1", true)
	require.NoError(t, err)

	page, err := c.GetEvents(ctx, offset, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, models.EventFavoriteToggled, page.Events[0].EventType)
	assert.Equal(t, "polo", page.Events[0].ResourceID)
	assert.Equal(t, int64(1), page.NextOffset)
	assert.False(t, page.Events[0].Timestamp.IsZero())

	var product models.Product
	require.NoError(t, json.Unmarshal(page.Events[0].Data, &product))
	assert.Equal(t, 1, product.Favorites)

	_, offset, err = c.ListProductsWithOffset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), offset)
}

func TestListProductsWithOffset_MissingHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, _, err := NewStorefrontClient(server.URL, time.Second).ListProductsWithOffset(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), EventOffsetHeader)
}

func TestToggleFavorite(t *testing.T) {
	c, catalog := newTestAPI(t)
	ctx := context.Background()

	product, err := c.ToggleFavorite(ctx, "polo", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, product.Favorites)

	product, err = c.ToggleFavorite(ctx, "polo", "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Favorites)
	assert.Empty(t, catalog.FavoritesOf("u1"))
}

func TestOrders(t *testing.T) {
	c, _ := newTestAPI(t)
	ctx := context.Background()

	created, err := c.CreateOrder(ctx, orderDraft("u1"), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", created.Status)

	retried, err := c.CreateOrder(ctx, orderDraft("u1"), "key-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, retried.ID)

	orders, err := c.ListUserOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, created.ID, orders[0].ID)

	require.NoError(t, c.DeleteOrder(ctx, created.ID))

	err = c.DeleteOrder(ctx, created.ID)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestCreateOrder_Invalid(t *testing.T) {
	c, _ := newTestAPI(t)
	draft := orderDraft("u1")
	draft.TotalAmount = 999

	_, err := c.CreateOrder(context.Background(), draft, "")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c := NewStorefrontClient(server.URL, time.Second)

	_, err := c.ListUserOrders(context.Background(), "u1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to make request")
}

func TestAPIKeyHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-API-Key")
		w.Write([]byte(`{"status":"OK","message":"up"}`))
	}))
	defer server.Close()

	_, err := NewStorefrontClient(server.URL, time.Second).WithAPIKey("secret").HealthCheck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}
