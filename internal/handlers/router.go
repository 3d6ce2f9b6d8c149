package handlers

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"storefront-api/internal/events"
	"storefront-api/internal/middleware"
	"storefront-api/internal/services"
	"storefront-api/internal/telemetry"
)

// Dependencies are the collaborators the REST surface is built from
type Dependencies struct {
	Catalog    *services.CatalogService
	Orders     *services.OrderService
	Promotions *services.PromotionService
	Messages   *services.MessageService
	Events     *events.EventQueue
	AdminAuth  *middleware.AdminAuth
	RateLimit  *middleware.RateLimiter           // optional
	Telemetry  *telemetry.StorefrontApiTelemetry // optional
	Logger     *slog.Logger
}

// NewRouter wires every /api route. Specific paths are registered before
// their {id} siblings because gorilla/mux matches in registration order.
func NewRouter(deps Dependencies) *mux.Router {
	if deps.AdminAuth == nil {
		deps.AdminAuth = middleware.NewAdminAuth(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	admin := deps.AdminAuth.Wrap

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)

	r.Use(chimw.RequestID, chimw.RealIP, middleware.Recoverer)
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Middleware)
	}
	if deps.Telemetry != nil {
		r.Use(telemetry.NewTelemetryMiddleware(deps.Telemetry).Middleware)
	}

	api := r.PathPrefix("/api").Subrouter()

	var offsets OffsetSource
	if deps.Events != nil {
		offsets = deps.Events
	}
	products := NewProductHandler(deps.Catalog, offsets)
	api.HandleFunc("/products", products.List).Methods("GET")
	api.Handle("/products", admin(products.Create)).Methods("POST")
	api.HandleFunc("/products/metrics", products.Metrics).Methods("GET")
	api.HandleFunc("/products/sales", products.Sales).Methods("GET")
	api.HandleFunc("/products/category/{category}", products.ByCategory).Methods("GET")
	api.HandleFunc("/products/user/{userId}/favorites", products.UserFavorites).Methods("GET")
	api.HandleFunc("/products/{id}/favorite", products.AddFavorite).Methods("POST")
	api.HandleFunc("/products/{id}/favorite", products.RemoveFavorite).Methods("DELETE")
	api.HandleFunc("/products/{id}", products.Get).Methods("GET")
	api.Handle("/products/{id}", admin(products.Update)).Methods("PUT")
	api.Handle("/products/{id}", admin(products.Delete)).Methods("DELETE")

	orders := NewOrderHandler(deps.Orders)
	api.HandleFunc("/orders", orders.List).Methods("GET")
	api.HandleFunc("/orders", orders.Create).Methods("POST")
	api.HandleFunc("/orders/user/{userId}", orders.ByUser).Methods("GET")
	api.HandleFunc("/orders/{id}", orders.Get).Methods("GET")
	api.Handle("/orders/{id}", admin(orders.UpdateStatus)).Methods("PUT")
	api.HandleFunc("/orders/{id}", orders.Delete).Methods("DELETE")

	promotions := NewPromotionHandler(deps.Promotions)
	api.HandleFunc("/promotions", promotions.List).Methods("GET")
	api.Handle("/promotions", admin(promotions.Create)).Methods("POST")
	api.HandleFunc("/promotions/active", promotions.Active).Methods("GET")
	api.HandleFunc("/promotions/code/{code}", promotions.ByCode).Methods("GET")
	api.Handle("/promotions/{id}", admin(promotions.Update)).Methods("PUT")
	api.Handle("/promotions/{id}", admin(promotions.Delete)).Methods("DELETE")

	messages := NewMessageHandler(deps.Messages)
	api.Handle("/messages", admin(messages.List)).Methods("GET")
	api.HandleFunc("/messages", messages.Create).Methods("POST")
	api.Handle("/messages/unread", admin(messages.Unread)).Methods("GET")
	api.Handle("/messages/{id}/read", admin(messages.MarkRead)).Methods("PUT")
	api.Handle("/messages/{id}", admin(messages.Get)).Methods("GET")
	api.Handle("/messages/{id}", admin(messages.Delete)).Methods("DELETE")

	if deps.Events != nil {
		eventsHandler := NewEventsHandler(deps.Events, deps.Logger)
		api.HandleFunc("/events", eventsHandler.GetEvents).Methods("GET")
	}

	rateLimits := NewRateLimitStatusHandler(deps.RateLimit)
	api.Handle("/admin/rate-limit", admin(rateLimits.Status)).Methods("GET")
	api.Handle("/admin/rate-limit", admin(rateLimits.Reset)).Methods("DELETE")

	api.HandleFunc("/health", NewHealthHandler().Health).Methods("GET")

	return r
}
