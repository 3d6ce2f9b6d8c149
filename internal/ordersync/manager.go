package ordersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-api/internal/client"
	"storefront-api/internal/localstore"
	"storefront-api/internal/models"
	"storefront-api/internal/notify"
)

const DefaultPollInterval = 5 * time.Second

var (
	ErrNotSignedIn    = errors.New("no user signed in")
	ErrSessionChanged = errors.New("session changed during request")
)

// OrderAPI is the part of the REST client the manager needs
type OrderAPI interface {
	ListUserOrders(ctx context.Context, userID string) ([]client.RemoteOrder, error)
	CreateOrder(ctx context.Context, draft models.OrderDraft, idempotencyKey string) (*client.RemoteOrder, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// Checkout is what the shopper confirms on the checkout page
type Checkout struct {
	Product   ProductSnapshot
	Size      string
	Color     string
	FirstName string
	LastName  string
	Address   string
	Phone     string
}

// ManagerConfig holds reconciliation settings
type ManagerConfig struct {
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Manager owns one shopper session: the order cache, the reconciliation loop
// and the notifications it produces
type Manager struct {
	api           OrderAPI
	cache         *OrderCache
	notifications *notify.Queue
	logger        *slog.Logger
	pollInterval  time.Duration
	now           func() time.Time

	mu         sync.Mutex
	userID     string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewManager creates a manager. Nothing runs until SignIn.
func NewManager(api OrderAPI, store localstore.Store, notifications *notify.Queue, config ManagerConfig) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Manager{
		api:           api,
		cache:         NewOrderCache(store, logger),
		notifications: notifications,
		logger:        logger,
		pollInterval:  interval,
		now:           time.Now,
	}
}

// SignIn loads userID's cached orders and starts the reconciliation loop.
// Any previous session is signed out first.
func (m *Manager) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotSignedIn
	}
	m.SignOut()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.userID = userID
	count := m.cache.Load(userID)

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(loopCtx, m.generation, m.done)

	m.logger.Info("Shopper signed in",
		"user_id", userID,
		"cached_orders", count,
		"poll_interval", m.pollInterval)
	return nil
}

// SignOut stops the loop and clears the in-memory cache. In-flight responses are discarded.
func (m *Manager) SignOut() {
	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return
	}
	userID := m.userID
	m.generation++
	m.userID = ""
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.cache.Reset()
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("Shopper signed out", "user_id", userID)
}

// Close ends the session and stops all notification timers
func (m *Manager) Close() {
	m.SignOut()
	if m.notifications != nil {
		m.notifications.Close()
	}
}

// UserID returns the signed-in user, or "" when signed out
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Orders returns the cached orders of the current session
func (m *Manager) Orders() []Order {
	return m.cache.Snapshot()
}

// SyncNow runs one reconciliation pass for the current session
func (m *Manager) SyncNow(ctx context.Context) (int, error) {
	m.mu.Lock()
	gen, signedIn := m.generation, m.userID != ""
	m.mu.Unlock()
	if !signedIn {
		return 0, ErrNotSignedIn
	}
	return m.tick(ctx, gen)
}

func (m *Manager) run(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Order reconciliation stopped", "generation", generation)
			return
		case <-ticker.C:
			if _, err := m.tick(ctx, generation); err != nil {
				m.logger.Warn("Order reconciliation failed", "error", err)
			}
		}
	}
}

// sessionFor returns the signed-in user if generation is still current
func (m *Manager) sessionFor(generation uint64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation || m.userID == "" {
		return "", false
	}
	return m.userID, true
}

// tick fetches remote statuses and applies the differences to the live cache.
// It returns how many orders changed.
func (m *Manager) tick(ctx context.Context, generation uint64) (int, error) {
	userID, ok := m.sessionFor(generation)
	if !ok {
		return 0, nil
	}
	if len(m.cache.Snapshot()) == 0 {
		return 0, nil
	}

	remote, err := m.api.ListUserOrders(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch orders for %s: %w", userID, err)
	}

	statuses := make(map[string]Status, len(remote))
	for _, r := range remote {
		statuses[r.ID] = LocalStatusForName(r.Status)
	}

	m.mu.Lock()
	if ctx.Err() != nil || m.generation != generation {
		m.mu.Unlock()
		m.logger.Debug("Discarding stale reconciliation response", "user_id", userID)
		return 0, nil
	}
	changes, persistErr := m.cache.ApplyRemoteStatuses(statuses)
	m.mu.Unlock()

	for _, change := range changes {
		m.logger.Info("Order status changed",
			"order_id", change.Order.ID,
			"from", change.Previous,
			"to", change.Order.Status)
		if m.notifications != nil {
			m.notifications.Push(notify.Notification{
				Type:        string(change.Order.Status),
				ProductName: change.Order.Product.Name,
				Message:     statusMessage(change.Order.Status),
			})
		}
	}

	if persistErr != nil {
		return len(changes), persistErr
	}
	return len(changes), nil
}

func statusMessage(s Status) string {
	return "Statut mis à jour: " + strings.Replace(string(s), "_", " ", 1)
}

// AddOrder submits the checkout and records the order locally whatever the outcome.
// When the server call fails the order gets a locally generated id.
func (m *Manager) AddOrder(ctx context.Context, checkout Checkout) (Order, error) {
	m.mu.Lock()
	userID, generation := m.userID, m.generation
	m.mu.Unlock()
	if userID == "" {
		return Order{}, ErrNotSignedIn
	}

	draft := models.OrderDraft{
		UserID: userID,
		Items: []models.OrderItem{{
			ProductID: checkout.Product.ID,
			Name:      checkout.Product.Name,
			Quantity:  1,
			Price:     checkout.Product.Price,
			Size:      checkout.Size,
			Color:     checkout.Color,
		}},
		TotalAmount: models.FlexFloat(checkout.Product.Price),
		Shipping: &models.Shipping{
			FirstName: checkout.FirstName,
			LastName:  checkout.LastName,
			Address:   checkout.Address,
			Phone:     checkout.Phone,
		},
	}

	var orderID string
	created, err := m.api.CreateOrder(ctx, draft, uuid.NewString())
	switch {
	case err != nil:
		m.logger.Warn("Order creation failed, keeping local order", "user_id", userID, "error", err)
	case created.ID == "":
		m.logger.Warn("Order creation returned no id, keeping local order", "user_id", userID)
	default:
		orderID = created.ID
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}

	order := Order{
		ID:        orderID,
		Product:   checkout.Product,
		Size:      checkout.Size,
		Color:     checkout.Color,
		FirstName: checkout.FirstName,
		LastName:  checkout.LastName,
		Address:   checkout.Address,
		Phone:     checkout.Phone,
		Status:    StatusPending,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation {
		return order, ErrSessionChanged
	}
	if err := m.cache.Add(order); err != nil {
		return order, err
	}

	m.logger.Info("Order added", "order_id", order.ID, "user_id", userID, "product_id", checkout.Product.ID)
	return order, nil
}

// CancelOrder removes the order locally then asks the server to delete it.
// A failed server delete is logged and never rolled back.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return ErrNotSignedIn
	}
	removed, persistErr := m.cache.Remove(orderID)
	m.mu.Unlock()

	if err := m.api.DeleteOrder(ctx, orderID); err != nil {
		m.logger.Warn("Remote order delete failed", "order_id", orderID, "error", err)
	}

	m.logger.Info("Order cancelled", "order_id", orderID, "was_cached", removed)
	return persistErr
}
