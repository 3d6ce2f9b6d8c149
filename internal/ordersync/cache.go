package ordersync

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"storefront-api/internal/localstore"
)

// ProductSnapshot is the product as the shopper saw it at checkout
type ProductSnapshot struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image"`
	Category      string   `json:"category"`
}

// Order is the client-side denormalized order
type Order struct {
	ID        string          `json:"id"`
	Product   ProductSnapshot `json:"product"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// StatusChange describes one order whose status moved during reconciliation
type StatusChange struct {
	Order    Order
	Previous Status
}

// CacheKey is the local store key holding userID's orders
func CacheKey(userID string) string {
	return "orders:" + userID
}

// OrderCache mirrors one user's orders and persists every mutation
type OrderCache struct {
	mu     sync.RWMutex
	store  localstore.Store
	logger *slog.Logger
	userID string
	orders []Order
}

func NewOrderCache(store localstore.Store, logger *slog.Logger) *OrderCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderCache{store: store, logger: logger, orders: []Order{}}
}

// Load replaces the cache with userID's persisted orders.
// Unreadable or corrupt data loads as an empty list.
func (c *OrderCache) Load(userID string) int {
	var orders []Order
	if _, err := localstore.GetJSON(c.store, CacheKey(userID), &orders); err != nil {
		c.logger.Error("Failed to load orders from local store, starting empty", "user_id", userID, "error", err)
		orders = nil
	}

	for i := range orders {
		if !orders[i].Status.Valid() {
			c.logger.Warn("Unknown local order status, treating as pending",
				"order_id", orders[i].ID,
				"status", orders[i].Status)
			orders[i].Status = StatusPending
		}
	}
	if orders == nil {
		orders = []Order{}
	}

	c.mu.Lock()
	c.userID = userID
	c.orders = orders
	c.mu.Unlock()

	c.logger.Debug("Order cache loaded", "user_id", userID, "orders", len(orders))
	return len(orders)
}

// Reset empties the in-memory cache without touching persisted data
func (c *OrderCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = ""
	c.orders = []Order{}
}

func (c *OrderCache) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Snapshot returns a copy of the live orders
func (c *OrderCache) Snapshot() []Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Order{}, c.orders...)
}

// Add appends an order and persists
func (c *OrderCache) Add(order Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = append(c.orders, order)
	return c.persistLocked()
}

// Remove drops the order with id and persists. It reports whether the order existed.
func (c *OrderCache) Remove(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]Order, 0, len(c.orders))
	for _, o := range c.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	removed := len(kept) != len(c.orders)
	c.orders = kept
	return removed, c.persistLocked()
}

// ApplyRemoteStatuses updates cached orders whose remote status differs.
// Orders with no remote entry are left alone. Persists once, only if something changed.
func (c *OrderCache) ApplyRemoteStatuses(remote map[string]Status) ([]StatusChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changes []StatusChange
	for i := range c.orders {
		next, ok := remote[c.orders[i].ID]
		if !ok || next == c.orders[i].Status {
			continue
		}
		previous := c.orders[i].Status
		c.orders[i].Status = next
		changes = append(changes, StatusChange{Order: c.orders[i], Previous: previous})
	}

	if len(changes) == 0 {
		return nil, nil
	}
	return changes, c.persistLocked()
}

func (c *OrderCache) persistLocked() error {
	if c.userID == "" {
		return nil
	}
	if err := localstore.SetJSON(c.store, CacheKey(c.userID), c.orders); err != nil {
		return fmt.Errorf("failed to persist orders: %w", err)
	}
	return nil
}
