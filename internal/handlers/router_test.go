package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/cache"
	"storefront-api/internal/events"
	"storefront-api/internal/logging"
	"storefront-api/internal/middleware"
	"storefront-api/internal/models"
	"storefront-api/internal/services"
)

const adminKey = "admin-secret"

type testServer struct {
	router  *mux.Router
	catalog *services.CatalogService
	orders  *services.OrderService
	events  *events.EventQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	eventQueue := events.NewEventQueue(events.EventQueueConfig{MaxEvents: 100, Logger: logging.Discard()})
	idem := cache.NewTTLCache[models.Order](time.Minute, time.Minute)
	t.Cleanup(idem.Stop)

	catalog := services.NewCatalogService(eventQueue)
	promotions := services.NewPromotionService()
	orders := services.NewOrderService(catalog, promotions, eventQueue, idem)
	messages := services.NewMessageService()

	original := 89.99
	catalog.Seed([]models.Product{
		{ID: "hoodie", Name: "Hoodie Premium", Category: "Hoodie", Price: 59.99, OriginalPrice: &original, Stock: 45, OrdersCount: 1},
		{ID: "polo", Name: "Polo Bleu", Category: "Polo", Price: 39.99, Stock: 3},
	})

	router := NewRouter(Dependencies{
		Catalog:    catalog,
		Orders:     orders,
		Promotions: promotions,
		Messages:   messages,
		Events:     eventQueue,
		AdminAuth:  middleware.NewAdminAuth([]string{adminKey}),
		Logger:     logging.Discard(),
	})
	return &testServer{router: router, catalog: catalog, orders: orders, events: eventQueue}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

var admin = map[string]string{"X-API-Key": adminKey}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", decode[models.HealthResponse](t, w).Status)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/nothing-here", nil, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", decode[models.ErrorResponse](t, w).Error)
}

// TestProductRoutes tests the read endpoints and their precedence over /{id}
func TestProductRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path     string
		expected []string
	}{
		{"/api/products", []string{"hoodie", "polo"}},
		{"/api/products/metrics", []string{"hoodie", "polo"}},
		{"/api/products/sales", []string{"hoodie"}},
		{"/api/products/category/polo", []string{"polo"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := s.do(t, "GET", tt.path, nil, nil)
			require.Equal(t, http.StatusOK, w.Code)

			ids := []string{}
			for _, p := range decode[[]models.Product](t, w) {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	w := s.do(t, "GET", "/api/products/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decode[models.ErrorResponse](t, w).Error)
}

// TestProductAdminRoutes tests admin auth and string coercion on create and update
func TestProductAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"Sweat","category":"Hoodie","price":"49.90","stock":"12"}`

	w := s.do(t, "POST", "/api/products", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "POST", "/api/products", body, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Product](t, w)
	assert.Equal(t, 49.90, created.Price)
	assert.Equal(t, 12, created.Stock)
	assert.Equal(t, models.DefaultProductImage, created.Image)

	w = s.do(t, "PUT", "/api/products/"+created.ID, `{"stock":0,"name":""}`, admin)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Product](t, w)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, "Sweat", updated.Name)

	w = s.do(t, "POST", "/api/products", `{"name":"x"}`, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "validation_error", errBody.Code)
	assert.NotEmpty(t, errBody.Details)

	w = s.do(t, "POST", "/api/products", `{not json`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "DELETE", "/api/products/"+created.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "GET", "/api/products/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestFavoriteRoutes tests per-user favorites and the anonymous path
func TestFavoriteRoutes(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 2; i++ {
		w := s.do(t, "POST", "/api/products/polo/favorite", map[string]string{"userId": "u1"}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		p := decode[models.Product](t, w)
		assert.Equal(t, 1, p.Favorites, "Repeated add by the same user is a no-op")
	}

	w := s.do(t, "GET", "/api/products/user/u1/favorites", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"polo"}, decode[[]string](t, w))

	w = s.do(t, "DELETE", "/api/products/polo/favorite", map[string]string{"userId": "u1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.Product](t, w).Favorites)

	w = s.do(t, "POST", "/api/products/polo/favorite", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, "Anonymous toggles accept an empty body")
	assert.Equal(t, 1, decode[models.Product](t, w).Favorites)

	w = s.do(t, "POST", "/api/products/missing/favorite", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestOrderRoutes tests the order lifecycle over HTTP
func TestOrderRoutes(t *testing.T) {
	s := newTestServer(t)
	draft := map[string]interface{}{
		"userId":      "u1",
		"items":       []map[string]interface{}{{"productId": "polo", "name": "Polo Bleu", "quantity": 10, "price": 39.99}},
		"totalAmount": 399.90,
		"shipping":    map[string]string{"firstName": "Ana", "lastName": "D", "address": "1 rue X", "phone": "06"},
	}

	w := s.do(t, "POST", "/api/orders", draft, map[string]string{IdempotencyKeyHeader: "k1"})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[models.Order](t, w)
	assert.Equal(t, models.OrderPending, order.Status)

	w = s.do(t, "POST", "/api/orders", draft, map[string]string{IdempotencyKeyHeader: "k1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, order.ID, decode[models.Order](t, w).ID)

	polo, _ := s.catalog.Get("polo")
	assert.Equal(t, 0, polo.Stock)
	assert.Equal(t, 10, polo.OrdersCount)

	w = s.do(t, "GET", "/api/orders/user/u1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Order](t, w), 1)

	w = s.do(t, "PUT", "/api/orders/"+order.ID, map[string]string{"status": "shipped"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "PUT", "/api/orders/"+order.ID, map[string]string{"status": "teleported"}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "PUT", "/api/orders/"+order.ID, map[string]string{"status": "shipped"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderShipped, decode[models.Order](t, w).Status)

	w = s.do(t, "PUT", "/api/orders/missing", map[string]string{"status": "shipped"}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "DELETE", "/api/orders/"+order.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "GET", "/api/orders/"+order.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", decode[models.ErrorResponse](t, w).Error)

	polo, _ = s.catalog.Get("polo")
	assert.Equal(t, 0, polo.Stock, "Deleting an order does not restore stock")
}

// TestOrderRoutes_Validation tests rejected drafts
func TestOrderRoutes_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/orders", map[string]interface{}{"userId": "u1", "items": []interface{}{}, "totalAmount": 10}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "items", decode[models.ErrorResponse](t, w).Details[0].Field)
}

// TestPromotionAndMessageRoutes tests the peripheral resources
func TestPromotionAndMessageRoutes(t *testing.T) {
	s := newTestServer(t)
	now := time.Now().UTC()

	w := s.do(t, "POST", "/api/promotions", map[string]interface{}{
		"code": "spring", "name": "Spring", "discount": 15, "type": "percentage",
		"startDate": now.Add(-time.Hour), "endDate": now.Add(time.Hour),
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	promo := decode[models.Promotion](t, w)
	assert.Equal(t, "SPRING", promo.Code)

	w = s.do(t, "GET", "/api/promotions/code/Spring", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/api/promotions/active", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Promotion](t, w), 1)

	w = s.do(t, "DELETE", "/api/promotions/"+promo.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "POST", "/api/messages", map[string]string{
		"name": "Ana", "email": "ana@example.com", "subject": "Hello", "message": "Bonjour",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	msg := decode[models.Message](t, w)

	w = s.do(t, "GET", "/api/messages/unread", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "PUT", "/api/messages/"+msg.ID+"/read", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MessageRead, decode[models.Message](t, w).Status)

	w = s.do(t, "GET", "/api/messages/unread", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Message](t, w))
}

// TestEventsRoute tests that mutations show up on the event log
func TestEventsRoute(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "POST", "/api/products/polo/favorite", map[string]string{"userId": "u1"}, nil)

	w := s.do(t, "GET", "/api/events?offset=0&limit=10", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.EventsResponse](t, w)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, models.EventFavoriteToggled, resp.Events[0].EventType)
	assert.Equal(t, "polo", resp.Events[0].ResourceID)
	assert.Equal(t, int64(1), resp.NextOffset)

	w = s.do(t, "GET", "/api/events?offset=-4", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductList_EventOffsetHeader(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/products", nil, nil)
	assert.Equal(t, "0", w.Header().Get(EventOffsetHeader))

	s.do(t, "POST", "/api/products/polo/favorite", `{"userId":"u1"}`, nil)

	w = s.do(t, "GET", "/api/products", nil, nil)
	assert.Equal(t, "1", w.Header().Get(EventOffsetHeader))
}

func TestRateLimitStatusRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/api/admin/rate-limit", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "GET", "/api/admin/rate-limit", nil, admin)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: 50})
	t.Cleanup(limiter.Stop)
	limited := &testServer{router: NewRouter(Dependencies{
		Catalog:    s.catalog,
		Orders:     s.orders,
		Promotions: services.NewPromotionService(),
		Messages:   services.NewMessageService(),
		AdminAuth:  middleware.NewAdminAuth([]string{adminKey}),
		RateLimit:  limiter,
		Logger:     logging.Discard(),
	})}

	limited.do(t, "GET", "/api/products", nil, nil)
	w = limited.do(t, "GET", "/api/admin/rate-limit", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[middleware.RateLimitStats](t, w)
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.ActiveClients)

	w = limited.do(t, "DELETE", "/api/admin/rate-limit", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["clearedWindows"])
}
