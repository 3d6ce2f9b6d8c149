package services

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-api/internal/cache"
	"storefront-api/internal/models"
)

// totalTolerance absorbs cent rounding on discounted totals
const totalTolerance = 0.01

// StockLedger is the part of the catalog an order placement touches
type StockLedger interface {
	ApplyOrder(items []models.OrderItem) int
}

// PromotionLookup resolves a promotion code that must currently be active
type PromotionLookup interface {
	ActiveByCode(code string) (models.Promotion, error)
}

// OrderService owns the authoritative order records
type OrderService struct {
	mu         sync.RWMutex
	orders     []*models.Order
	stock      StockLedger
	promotions PromotionLookup
	events     EventPublisher
	now        func() time.Time

	idempotency *cache.TTLCache[models.Order]
	idemMu      sync.Mutex
}

// NewOrderService wires the order store to the catalog and promotions. events and idempotency may be nil.
func NewOrderService(stock StockLedger, promotions PromotionLookup, events EventPublisher, idempotency *cache.TTLCache[models.Order]) *OrderService {
	return &OrderService{
		orders:      make([]*models.Order, 0),
		stock:       stock,
		promotions:  promotions,
		events:      publisherOrNoop(events),
		now:         time.Now,
		idempotency: idempotency,
	}
}

// Seed replaces the order set without touching stock
func (s *OrderService) Seed(orders []models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		o := o.Clone()
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		s.orders = append(s.orders, &o)
	}
}

// Create validates a draft, applies its stock side effects and stores a pending order.
// A non-empty idempotencyKey the same user sent within the cache TTL returns the first order unchanged.
func (s *OrderService) Create(draft models.OrderDraft, idempotencyKey string) (models.Order, error) {
	cacheKey := idempotencyCacheKey(draft.UserID, idempotencyKey)
	if idempotencyKey != "" && s.idempotency != nil {
		s.idemMu.Lock()
		defer s.idemMu.Unlock()

		if existing, ok := s.idempotency.Get(cacheKey); ok {
			slog.Info("Duplicate order submission, returning original",
				"order_id", existing.ID,
				"idempotency_key", idempotencyKey)
			return existing, nil
		}
	}

	if err := s.validateDraft(draft); err != nil {
		slog.Warn("Rejected order", "user_id", draft.UserID, "error", err)
		return models.Order{}, err
	}

	applied := s.stock.ApplyOrder(draft.Items)

	now := s.now().UTC()
	order := models.Order{
		ID:            uuid.NewString(),
		UserID:        draft.UserID,
		Items:         append([]models.OrderItem{}, draft.Items...),
		TotalAmount:   float64(draft.TotalAmount),
		Status:        models.OrderPending,
		PromotionCode: strings.ToUpper(strings.TrimSpace(draft.PromotionCode)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if draft.Shipping != nil {
		shipping := *draft.Shipping
		order.Shipping = &shipping
	}

	s.mu.Lock()
	s.orders = append(s.orders, &order)
	created := order.Clone()
	s.mu.Unlock()

	if idempotencyKey != "" && s.idempotency != nil {
		s.idempotency.Set(cacheKey, created)
	}

	slog.Info("Order created",
		"order_id", created.ID,
		"user_id", created.UserID,
		"items", len(created.Items),
		"stock_applied", applied,
		"total_amount", created.TotalAmount)
	s.events.PublishEvent(models.EventOrderCreated, created.ID, created)
	return created, nil
}

// validateDraft checks required fields and that the total matches the items,
// after the promotion discount when a code is given.
func (s *OrderService) validateDraft(draft models.OrderDraft) error {
	if err := validateDraft("invalid order", draft); err != nil {
		return err
	}

	expected := models.ItemsSubtotal(draft.Items)
	if code := strings.TrimSpace(draft.PromotionCode); code != "" {
		if s.promotions == nil {
			return invalid("invalid order", models.ErrorDetail{Field: "promotionCode", Issue: "promotions are not available"})
		}
		promo, err := s.promotions.ActiveByCode(code)
		if err != nil {
			return invalid("invalid order", models.ErrorDetail{Field: "promotionCode", Issue: "is unknown or not active"})
		}
		expected = promo.Apply(expected)
	}

	if math.Abs(float64(draft.TotalAmount)-expected) > totalTolerance {
		return invalid("invalid order", models.ErrorDetail{
			Field: "totalAmount",
			Issue: "does not match the order items",
		})
	}
	return nil
}

// List returns all orders
func (s *OrderService) List() []models.Order {
	return s.filter(func(*models.Order) bool { return true })
}

// ListByUser returns the orders owned by userID
func (s *OrderService) ListByUser(userID string) []models.Order {
	return s.filter(func(o *models.Order) bool { return o.UserID == userID })
}

func (s *OrderService) filter(keep func(*models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			result = append(result, o.Clone())
		}
	}
	return result
}

func (s *OrderService) Get(id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, _ := s.find(id)
	if o == nil {
		return models.Order{}, notFound("order", id)
	}
	return o.Clone(), nil
}

// find must be called with the lock held
func (s *OrderService) find(id string) (*models.Order, int) {
	for i, o := range s.orders {
		if o.ID == id {
			return o, i
		}
	}
	return nil, -1
}

// UpdateStatus sets the status when one is given and always refreshes updatedAt.
// Any status may follow any other.
func (s *OrderService) UpdateStatus(id string, status *string) (models.Order, error) {
	s.mu.Lock()
	o, _ := s.find(id)
	if o == nil {
		s.mu.Unlock()
		return models.Order{}, notFound("order", id)
	}

	previous := o.Status
	if status != nil {
		parsed, err := models.ParseOrderStatus(*status)
		if err != nil {
			s.mu.Unlock()
			return models.Order{}, invalid("invalid order status",
				models.ErrorDetail{Field: "status", Issue: err.Error()})
		}
		o.Status = parsed
	}
	o.UpdatedAt = s.now().UTC()
	updated := o.Clone()
	s.mu.Unlock()

	slog.Info("Order status updated",
		"order_id", id,
		"from", previous.String(),
		"to", updated.Status.String())
	s.events.PublishEvent(models.EventOrderStatusChanged, id, updated)
	return updated, nil
}

// Delete removes an order. Stock taken by the order is not restored.
func (s *OrderService) Delete(id string) (models.Order, error) {
	s.mu.Lock()
	o, idx := s.find(id)
	if o == nil {
		s.mu.Unlock()
		return models.Order{}, notFound("order", id)
	}
	s.orders = append(s.orders[:idx], s.orders[idx+1:]...)
	s.mu.Unlock()

	slog.Info("Order deleted", "order_id", id, "user_id", o.UserID)
	s.events.PublishEvent(models.EventOrderDeleted, id, nil)
	return *o, nil
}

// idempotencyCacheKey scopes a client key to its user. The length prefix keeps ids containing ':' apart.
func idempotencyCacheKey(userID, key string) string {
	return strconv.Itoa(len(userID)) + ":" + userID + ":" + key
}
